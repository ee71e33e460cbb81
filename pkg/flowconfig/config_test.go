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

package flowconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const validDoc = `
control:
  probe_interval: 1
  control_interval: 2
  window_size: 5
  step_up: 10
  min_bandwidth: 10
  max_bandwidth: 1000
critical_apps:
  - name: robot-control
    service: robot-control.default.svc
    port: 9000
    protocol: UDP
    max_jitter_ms: 5.0
    priority: 1
  - name: safety-scanner
    service: safety-scanner.default.svc
    port: 9001
    protocol: TCP
    max_jitter_ms: 8.0
    priority: 2
best_effort_targets:
  - deployment: bulk-uploader
    namespace: default
    initial_bandwidth: 500
`

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "critical-apps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ParsesAndDefaults(t *testing.T) {
	path := writeTempConfig(t, validDoc)

	sys, err := Load(path)
	require.NoError(t, err)

	require.Len(t, sys.CriticalApps, 2)
	require.Len(t, sys.BestEffortTargets, 1)
	assert.True(t, sys.SeverityMultiplierEnabled)
	assert.Equal(t, defaultSeverityMaxMultiplier, sys.SeverityMaxMultiplier)
}

func TestLoad_SortsCriticalAppsByDescendingPriority(t *testing.T) {
	path := writeTempConfig(t, validDoc)

	sys, err := Load(path)
	require.NoError(t, err)

	// safety-scanner (priority 2) must sort ahead of robot-control (priority 1).
	require.Len(t, sys.CriticalApps, 2)
	assert.Equal(t, "safety-scanner", sys.CriticalApps[0].Name)
	assert.Equal(t, "robot-control", sys.CriticalApps[1].Name)
}

func TestLoad_ErrorsOnMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoad_ErrorsOnMalformedYAML(t *testing.T) {
	path := writeTempConfig(t, "control: [this is not valid")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_RejectsEmptyCriticalApps(t *testing.T) {
	sys := &System{
		Control:           Control{ProbeIntervalSeconds: 1, ControlIntervalSeconds: 1, WindowSize: 5, MinBandwidthMbps: 10, MaxBandwidthMbps: 100},
		BestEffortTargets: []BestEffortTarget{{Deployment: "d", Namespace: "n"}},
	}
	assert.Error(t, sys.Validate())
}

func TestValidate_RejectsEmptyBestEffortTargets(t *testing.T) {
	sys := &System{
		Control:      Control{ProbeIntervalSeconds: 1, ControlIntervalSeconds: 1, WindowSize: 5, MinBandwidthMbps: 10, MaxBandwidthMbps: 100},
		CriticalApps: []CriticalApp{{Name: "a", Protocol: ProtocolUDP, MaxJitterMs: 1}},
	}
	assert.Error(t, sys.Validate())
}

func TestValidate_RejectsMinGreaterOrEqualMax(t *testing.T) {
	sys := &System{
		Control:           Control{ProbeIntervalSeconds: 1, ControlIntervalSeconds: 1, WindowSize: 5, MinBandwidthMbps: 100, MaxBandwidthMbps: 100},
		CriticalApps:      []CriticalApp{{Name: "a", Protocol: ProtocolUDP, MaxJitterMs: 1}},
		BestEffortTargets: []BestEffortTarget{{Deployment: "d", Namespace: "n"}},
	}
	assert.Error(t, sys.Validate())
}

func TestValidate_RejectsWindowSizeBelowFive(t *testing.T) {
	sys := &System{
		Control:           Control{ProbeIntervalSeconds: 1, ControlIntervalSeconds: 1, WindowSize: 4, MinBandwidthMbps: 10, MaxBandwidthMbps: 100},
		CriticalApps:      []CriticalApp{{Name: "a", Protocol: ProtocolUDP, MaxJitterMs: 1}},
		BestEffortTargets: []BestEffortTarget{{Deployment: "d", Namespace: "n"}},
	}
	assert.Error(t, sys.Validate())
}

func TestValidate_RejectsUnknownProtocol(t *testing.T) {
	sys := &System{
		Control:           Control{ProbeIntervalSeconds: 1, ControlIntervalSeconds: 1, WindowSize: 5, MinBandwidthMbps: 10, MaxBandwidthMbps: 100},
		CriticalApps:      []CriticalApp{{Name: "a", Protocol: "ICMP", MaxJitterMs: 1}},
		BestEffortTargets: []BestEffortTarget{{Deployment: "d", Namespace: "n"}},
	}
	assert.Error(t, sys.Validate())
}

func TestValidate_AcceptsWellFormedSystem(t *testing.T) {
	path := writeTempConfig(t, validDoc)
	sys, err := Load(path)
	require.NoError(t, err)
	assert.NoError(t, sys.Validate())
}

func TestUDPApps_FiltersToUDPOnly(t *testing.T) {
	path := writeTempConfig(t, validDoc)
	sys, err := Load(path)
	require.NoError(t, err)

	udp := sys.UDPApps()
	require.Len(t, udp, 1)
	assert.Equal(t, "robot-control", udp[0].Name)
}

// TestLoad_RoundTripsThroughReserialization verifies that a loaded,
// validated System, marshaled back to YAML and reloaded through the same
// path, reproduces the same critical apps and best-effort targets — the
// scenario spec §8 uses to exercise a config reload.
func TestLoad_RoundTripsThroughReserialization(t *testing.T) {
	path := writeTempConfig(t, validDoc)
	sys, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, sys.Validate())

	out, err := yaml.Marshal(sys)
	require.NoError(t, err)

	reloadPath := writeTempConfig(t, string(out))
	reloaded, err := Load(reloadPath)
	require.NoError(t, err)
	require.NoError(t, reloaded.Validate())

	require.Len(t, reloaded.CriticalApps, len(sys.CriticalApps))
	for i, app := range sys.CriticalApps {
		assert.Equal(t, app.Name, reloaded.CriticalApps[i].Name)
		assert.Equal(t, app.Service, reloaded.CriticalApps[i].Service)
		assert.Equal(t, app.Port, reloaded.CriticalApps[i].Port)
		assert.Equal(t, app.Protocol, reloaded.CriticalApps[i].Protocol)
		assert.Equal(t, app.MaxJitterMs, reloaded.CriticalApps[i].MaxJitterMs)
		assert.Equal(t, app.Priority, reloaded.CriticalApps[i].Priority)
	}
	assert.Equal(t, sys.BestEffortTargets, reloaded.BestEffortTargets)
}

func TestCriticalApp_Target(t *testing.T) {
	app := CriticalApp{Service: "robot-control.default.svc", Port: 9000}
	assert.Equal(t, "robot-control.default.svc:9000", app.Target())
}
