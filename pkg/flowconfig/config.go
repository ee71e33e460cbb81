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

// Package flowconfig loads and validates the declarative SLA document
// shared by the network-probe and flow-manager binaries.
package flowconfig

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Protocol is the transport tag of a critical application.
type Protocol string

const (
	ProtocolUDP Protocol = "UDP"
	ProtocolTCP Protocol = "TCP"
)

// Control holds the global control-loop parameters.
type Control struct {
	ProbeIntervalSeconds   float64 `yaml:"probe_interval"`
	ControlIntervalSeconds float64 `yaml:"control_interval"`
	WindowSize             int     `yaml:"window_size"`
	StepDown               int     `yaml:"step_down"` // legacy, not read; throttling uses aimd.DecreaseFractionDefault
	StepUp                 int     `yaml:"step_up"`
	MinBandwidthMbps       int     `yaml:"min_bandwidth"`
	MaxBandwidthMbps       int     `yaml:"max_bandwidth"`
}

// ProbeInterval returns the probe cadence as a time.Duration.
func (c Control) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalSeconds * float64(time.Second))
}

// ControlInterval returns the control-tick cadence as a time.Duration.
func (c Control) ControlInterval() time.Duration {
	return time.Duration(c.ControlIntervalSeconds * float64(time.Second))
}

// CriticalApp is a latency-sensitive workload whose SLA the controller protects.
type CriticalApp struct {
	Name         string   `yaml:"name"`
	Service      string   `yaml:"service"`
	Port         int      `yaml:"port"`
	Protocol     Protocol `yaml:"protocol"`
	MaxJitterMs  float64  `yaml:"max_jitter_ms"`
	MaxLatencyMs *float64 `yaml:"max_latency_ms,omitempty"`
	Priority     int      `yaml:"priority"`

	// seq preserves config insertion order so priority ties break stably (spec §3).
	seq int
}

// Target returns "host:port" for dialing or resolving this application.
func (a CriticalApp) Target() string {
	return fmt.Sprintf("%s:%d", a.Service, a.Port)
}

// BestEffortTarget is a workload whose egress bandwidth may be throttled.
type BestEffortTarget struct {
	Deployment       string `yaml:"deployment"`
	Namespace        string `yaml:"namespace"`
	InitialBandwidth int    `yaml:"initial_bandwidth"`
}

// System is the complete, validated SLA configuration.
type System struct {
	Control                    Control             `yaml:"control"`
	CriticalApps               []CriticalApp       `yaml:"critical_apps"`
	BestEffortTargets          []BestEffortTarget  `yaml:"best_effort_targets"`
	SeverityMultiplierEnabled  bool                `yaml:"severity_multiplier_enabled"`
	SeverityMaxMultiplier      float64             `yaml:"severity_max_multiplier"`
}

const (
	defaultSeverityMaxMultiplier = 5.0
)

// Load reads and parses the YAML document at path, applying defaults for
// optional fields. It does not validate; call Validate separately so
// callers can log before treating a failure as fatal.
func Load(path string) (*System, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var doc struct {
		Control           Control             `yaml:"control"`
		CriticalApps      []CriticalApp       `yaml:"critical_apps"`
		BestEffortTargets []BestEffortTarget  `yaml:"best_effort_targets"`
		SeverityEnabled   *bool               `yaml:"severity_multiplier_enabled"`
		SeverityMax       *float64            `yaml:"severity_max_multiplier"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	for i := range doc.CriticalApps {
		doc.CriticalApps[i].seq = i
	}
	// Stable sort by descending priority; ties keep config order (spec §3).
	sort.SliceStable(doc.CriticalApps, func(i, j int) bool {
		return doc.CriticalApps[i].Priority > doc.CriticalApps[j].Priority
	})

	sys := &System{
		Control:                   doc.Control,
		CriticalApps:              doc.CriticalApps,
		BestEffortTargets:         doc.BestEffortTargets,
		SeverityMultiplierEnabled: true,
		SeverityMaxMultiplier:     defaultSeverityMaxMultiplier,
	}
	if doc.SeverityEnabled != nil {
		sys.SeverityMultiplierEnabled = *doc.SeverityEnabled
	}
	if doc.SeverityMax != nil {
		sys.SeverityMaxMultiplier = *doc.SeverityMax
	}
	return sys, nil
}

// Validate applies the startup-fatal rules from spec §6. The first
// violation found is returned; callers should treat any error as
// ConfigFatal and exit non-zero.
func (s *System) Validate() error {
	if len(s.CriticalApps) == 0 {
		return fmt.Errorf("critical_apps must not be empty")
	}
	if len(s.BestEffortTargets) == 0 {
		return fmt.Errorf("best_effort_targets must not be empty")
	}
	if s.Control.MinBandwidthMbps >= s.Control.MaxBandwidthMbps {
		return fmt.Errorf("min_bandwidth (%d) must be < max_bandwidth (%d)", s.Control.MinBandwidthMbps, s.Control.MaxBandwidthMbps)
	}
	if s.Control.WindowSize < 5 {
		return fmt.Errorf("window_size (%d) must be >= 5", s.Control.WindowSize)
	}
	if s.Control.ProbeIntervalSeconds <= 0 {
		return fmt.Errorf("probe_interval must be > 0")
	}
	if s.Control.ControlIntervalSeconds <= 0 {
		return fmt.Errorf("control_interval must be > 0")
	}
	for _, app := range s.CriticalApps {
		switch app.Protocol {
		case ProtocolUDP, ProtocolTCP:
		default:
			return fmt.Errorf("critical app %q: invalid protocol %q", app.Name, app.Protocol)
		}
		if app.MaxJitterMs <= 0 {
			return fmt.Errorf("critical app %q: max_jitter_ms must be > 0", app.Name)
		}
	}
	return nil
}

// UDPApps returns the subset of CriticalApps whose protocol is UDP, in
// priority order.
func (s *System) UDPApps() []CriticalApp {
	var out []CriticalApp
	for _, a := range s.CriticalApps {
		if a.Protocol == ProtocolUDP {
			out = append(out, a)
		}
	}
	return out
}
