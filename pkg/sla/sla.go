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

// Package sla evaluates per-application service-level objectives and
// aggregates them into a single per-tick control decision (spec §4.3.3,
// §4.3.4).
package sla

import (
	"fmt"

	"github.com/gke-flowmanager/flowmanager/pkg/aimd"
	"github.com/gke-flowmanager/flowmanager/pkg/flowconfig"
)

// Result is one critical application's evaluated state for the current tick.
type Result struct {
	App       flowconfig.CriticalApp
	Jitter    float64
	Violation bool
	// Severity is jitter/max_jitter; only meaningful when Violation is
	// true. The severity-multiplier config fields retired from the
	// decision path (spec §9 open question) are not read here — Severity
	// is exported for observability and potential future proportional
	// throttling only.
	Severity float64
	Stable   bool
	// Insufficient is true when the app's rolling window held fewer than
	// 5 samples, so Jitter is the spec §3 default of 0 rather than a real
	// measurement. Insufficient apps are excluded from aggregation so a
	// cold window can't masquerade as "stable" (spec §4.3.7).
	Insufficient bool
}

// Evaluate computes the SLA result for one application given its current
// jitter and the number of samples backing it (spec §4.3.3):
//
//	violation := jitter > max_jitter
//	severity  := jitter / max_jitter   (only meaningful when violation)
//	stable    := jitter < max_jitter / 2
//
// sampleCount lets Decide distinguish a genuinely quiet window from one
// that simply hasn't filled up yet (jitter is reported as 0 in both
// cases per spec §3, but only the former should count as "stable").
func Evaluate(app flowconfig.CriticalApp, jitter float64, sampleCount int) Result {
	violation := jitter > app.MaxJitterMs
	var severity float64
	if violation && app.MaxJitterMs > 0 {
		severity = jitter / app.MaxJitterMs
	}
	return Result{
		App:          app,
		Jitter:       jitter,
		Violation:    violation,
		Severity:     severity,
		Stable:       jitter < app.MaxJitterMs/2,
		Insufficient: sampleCount < 5,
	}
}

// Decision is the controller's single per-tick outcome (spec §4.3.4).
type Decision struct {
	Action aimd.Action
	Reason string
}

// Decide aggregates per-application results into one decision, applied
// uniformly to all best-effort targets (spec §4.3.4):
//
//  1. Among UDP-protocol critical apps with a full window, select the
//     violator with the highest priority. If one exists -> THROTTLE.
//  2. Otherwise, if every UDP-protocol critical app with a full window is
//     stable (and at least one is present) -> RELEASE.
//  3. Otherwise -> MAINTAIN.
//
// results must already be restricted or not; Decide itself filters to
// UDP-protocol apps, so TCP-protocol results may be passed in untouched —
// they are observed but never drive the decision (spec §4.3.4 asymmetry).
// Results flagged Insufficient are excluded entirely: a tick where no UDP
// app has gathered 5 samples yet must degenerate to MAINTAIN rather than
// read a cold window's zero jitter as "stable" (spec §4.3.7, §8).
// Results are assumed to already be in priority order (flowconfig.Load
// sorts critical_apps by descending priority at load time); ties keep the
// earlier (higher-priority-sorted, stable) entry.
func Decide(results []Result) Decision {
	var worst *Result
	var udpCount int
	allStable := true

	for i := range results {
		r := &results[i]
		if r.App.Protocol != flowconfig.ProtocolUDP {
			continue
		}
		if r.Insufficient {
			continue
		}
		udpCount++
		if !r.Stable {
			allStable = false
		}
		if r.Violation {
			if worst == nil || r.App.Priority > worst.App.Priority {
				worst = r
			}
		}
	}

	if worst != nil {
		return Decision{
			Action: aimd.Throttle,
			Reason: fmt.Sprintf("%s (UDP) jitter %.3fms > %.3fms threshold (priority %d)",
				worst.App.Name, worst.Jitter, worst.App.MaxJitterMs, worst.App.Priority),
		}
	}

	if udpCount > 0 && allStable {
		return Decision{
			Action: aimd.Release,
			Reason: "all UDP critical apps stable (jitter < 50% of threshold)",
		}
	}

	return Decision{
		Action: aimd.Maintain,
		Reason: "no UDP violation and not all UDP apps stable",
	}
}
