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

package flowmanager

import "github.com/prometheus/client_golang/prometheus"

// controllerMetrics are the Controller's own exported gauges (spec §6):
// per-application UDP/TCP jitter and per-target enforced bandwidth.
type controllerMetrics struct {
	udpJitter *prometheus.GaugeVec
	tcpJitter *prometheus.GaugeVec
	bandwidth *prometheus.GaugeVec
}

func newControllerMetrics(reg prometheus.Registerer) *controllerMetrics {
	m := &controllerMetrics{
		udpJitter: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flowmanager_udp_jitter_ms",
			Help: "Current IQR jitter statistic for a UDP critical application.",
		}, []string{"service", "target_host"}),
		tcpJitter: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flowmanager_tcp_jitter_ms",
			Help: "Current IQR jitter statistic for a TCP critical application.",
		}, []string{"service", "target_host"}),
		bandwidth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flowmanager_bandwidth_limit_mbps",
			Help: "Current enforced egress bandwidth limit for a best-effort target.",
		}, []string{"deployment", "namespace"}),
	}
	reg.MustRegister(m.udpJitter, m.tcpJitter, m.bandwidth)
	return m
}

func (m *controllerMetrics) recordJitter(app appJitter) {
	switch app.protocol {
	case "UDP":
		m.udpJitter.WithLabelValues(app.name, app.host).Set(app.jitterMs)
	case "TCP":
		m.tcpJitter.WithLabelValues(app.name, app.host).Set(app.jitterMs)
	}
}

func (m *controllerMetrics) recordBandwidth(deployment, namespace string, mbps int) {
	m.bandwidth.WithLabelValues(deployment, namespace).Set(float64(mbps))
}

// appJitter is the minimal view metrics recording needs out of one
// app's evaluated state this tick.
type appJitter struct {
	name     string
	host     string
	protocol string
	jitterMs float64
}
