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

// Package flowmanager wires ingestion, window, sla, aimd and orchestrator
// into the Controller's single-tick loop (spec §4.3).
package flowmanager

import (
	"context"
	"fmt"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/gke-flowmanager/flowmanager/pkg/flowconfig"
)

// scrapeFetchTimeout bounds the probe scrape fetch (spec §4.3.1, "≤ 2s").
const scrapeFetchTimeout = 2

// udpLatencyMetric and tcpLatencyMetric are the stable Probe gauge names
// the Controller ingests from (spec §6).
const (
	udpLatencyMetric = "network_probe_udp_latency_ms"
	tcpLatencyMetric = "network_probe_tcp_latency_ms"
	udpSuccessMetric = "network_probe_udp_success"
	tcpSuccessMetric = "network_probe_tcp_success"
)

// metricNameForProtocol selects the gauge the ingestion path reads for a
// critical application, keyed by its transport tag — "a fixed, small
// match in the ingestion path, not open polymorphism" (spec §9).
func metricNameForProtocol(p flowconfig.Protocol) string {
	switch p {
	case flowconfig.ProtocolUDP:
		return udpLatencyMetric
	case flowconfig.ProtocolTCP:
		return tcpLatencyMetric
	default:
		return ""
	}
}

// fetchScrape retrieves and parses the Probe's /metrics text exposition
// via prometheus/common/expfmt, the standard way to read Prometheus
// exposition text rather than hand-splitting lines.
func fetchScrape(ctx context.Context, client *http.Client, probeURL string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build scrape request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch probe scrape: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("probe scrape returned status %d", resp.StatusCode)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse probe scrape: %w", err)
	}
	return families, nil
}

// sampleForApp extracts the single gauge value for app's target label
// from the parsed metric families, selecting the metric family by
// protocol. It returns ok=false if the family, the target's series, or a
// usable numeric value is missing, or if the target's success gauge for
// that protocol reads 0 (the probe keeps the last good latency on a
// failed probe) — any of which means "no sample appended this tick"
// (spec §4.3.1).
func sampleForApp(families map[string]*dto.MetricFamily, app flowconfig.CriticalApp) (float64, bool) {
	metricName := metricNameForProtocol(app.Protocol)
	if metricName == "" {
		return 0, false
	}
	successName := udpSuccessMetric
	if app.Protocol == flowconfig.ProtocolTCP {
		successName = tcpSuccessMetric
	}
	if success, ok := families[successName]; ok {
		for _, m := range success.Metric {
			if hasLabel(m, "target", app.Name) && m.Gauge != nil && m.Gauge.GetValue() == 0 {
				return 0, false
			}
		}
	}
	family, ok := families[metricName]
	if !ok {
		return 0, false
	}
	for _, m := range family.Metric {
		if !hasLabel(m, "target", app.Name) {
			continue
		}
		if m.Gauge == nil || m.Gauge.Value == nil {
			return 0, false
		}
		return *m.Gauge.Value, true
	}
	return 0, false
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.Label {
		if lp.GetName() == name {
			return lp.GetValue() == value
		}
	}
	return false
}
