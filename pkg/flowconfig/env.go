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
	"strconv"
	"strings"
)

// Environment variable names read by the network-probe and flow-manager
// binaries. Precedence is env > file > default (spec §6).
const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvMetricsPort  = "METRICS_PORT"
	EnvProbeService = "PROBE_SERVICE"
)

// DefaultConfigPath is used when CONFIG_PATH is unset.
const DefaultConfigPath = "/etc/flowmanager/critical-apps.yaml"

// ConfigPath resolves CONFIG_PATH, falling back to DefaultConfigPath.
func ConfigPath() string {
	if v := os.Getenv(EnvConfigPath); v != "" {
		return v
	}
	return DefaultConfigPath
}

// MetricsPort resolves METRICS_PORT, falling back to def.
func MetricsPort(def int) int {
	v := os.Getenv(EnvMetricsPort)
	if v == "" {
		return def
	}
	port, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return port
}

// ProbeService resolves PROBE_SERVICE (the host:port the controller
// scrapes), falling back to def.
func ProbeService(def string) string {
	if v := os.Getenv(EnvProbeService); v != "" {
		return v
	}
	return def
}

// ApplyTargetOverrides rewrites each critical app's Service/Port from
// per-target environment variables of the form
// <APP_NAME>_HOST / <APP_NAME>_PORT (name upper-cased, each
// non-alphanumeric character replaced by an underscore), if present. Used by the probe to allow
// target endpoints to be relocated without editing the shared config file.
func ApplyTargetOverrides(apps []CriticalApp) []CriticalApp {
	out := make([]CriticalApp, len(apps))
	copy(out, apps)
	for i, app := range out {
		prefix := envPrefix(app.Name)
		if host := os.Getenv(prefix + "_HOST"); host != "" {
			out[i].Service = host
		}
		if portStr := os.Getenv(prefix + "_PORT"); portStr != "" {
			if port, err := strconv.Atoi(portStr); err == nil {
				out[i].Port = port
			}
		}
	}
	return out
}

func envPrefix(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
