// Copyright 2026 The Flow Manager Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package aimd implements the Asymmetric AIMD bandwidth-control law
// (spec §4.3.5) and the egress-bandwidth annotation codec (spec §6).
package aimd

import (
	"fmt"
	"strconv"
)

// DecreaseFractionDefault is the fixed multiplicative-decrease fraction
// used by the control law (spec §4.3.5 default 0.20). The config schema
// carries a legacy step_down field that this supersedes.
const DecreaseFractionDefault = 0.20

// Action is the controller's single per-tick decision (spec §4.3.4).
type Action int

const (
	Maintain Action = iota
	Throttle
	Release
)

func (a Action) String() string {
	switch a {
	case Throttle:
		return "THROTTLE"
	case Release:
		return "RELEASE"
	default:
		return "MAINTAIN"
	}
}

// Bounds holds the global min/max bandwidth clamp (spec §3).
type Bounds struct {
	MinMbps int
	MaxMbps int
}

// Apply computes the next enforced bandwidth for one best-effort target
// given the current bandwidth and the tick's decision, following the
// Asymmetric AIMD law exactly (spec §4.3.5):
//
//	THROTTLE: B' = max(Bmin, floor(B*(1-d)))
//	RELEASE:  B' = min(Bmax, B + stepUp)
//	MAINTAIN: B' = B
//
// With d = 0.20, THROTTLE from 500 gives 400, 320, 256, 204, 163.
// The result is always clamped within bounds, restoring the §3 invariant
// even if current somehow started out of range.
func Apply(action Action, current int, decreaseFraction float64, stepUpMbps int, bounds Bounds) int {
	var next int
	switch action {
	case Throttle:
		next = int(float64(current) * (1 - decreaseFraction))
	case Release:
		next = current + stepUpMbps
	default:
		next = current
	}
	return clamp(next, bounds)
}

func clamp(v int, b Bounds) int {
	if v < b.MinMbps {
		return b.MinMbps
	}
	if v > b.MaxMbps {
		return b.MaxMbps
	}
	return v
}

// AnnotationKey is the pod-template annotation the data plane reads to
// install an egress rate limiter (spec §6).
const AnnotationKey = "kubernetes.io/egress-bandwidth"

// FormatAnnotation renders mbps in the bit-exact form the data plane
// expects: integer Mbps followed by the capital letter M, no spaces
// (spec §6).
func FormatAnnotation(mbps int) string {
	return strconv.Itoa(mbps) + "M"
}

// ParseAnnotation parses an egress-bandwidth annotation value into Mbps.
// The accepted suffix set is {M, m, K, k, G, g}; the numeric part is the
// leading integer run. G/g multiply by 1000, not 1024 — preserved from
// the original implementation to avoid surprising the data plane (spec
// §9 open question).
func ParseAnnotation(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty bandwidth annotation")
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("bandwidth annotation %q has no leading integer", s)
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, fmt.Errorf("bandwidth annotation %q: %w", s, err)
	}

	suffix := s[i:]
	switch suffix {
	case "", "M", "m":
		return n, nil
	case "K", "k":
		return n, nil
	case "G", "g":
		return n * 1000, nil
	default:
		return 0, fmt.Errorf("bandwidth annotation %q: unsupported suffix %q", s, suffix)
	}
}
