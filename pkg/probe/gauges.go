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

// Package probe implements the active network probe (spec §4.1): it
// measures UDP round-trip latency, TCP handshake latency and throttled TCP
// throughput against every configured critical application, and exposes
// the results at a Prometheus scrape endpoint.
package probe

import "github.com/prometheus/client_golang/prometheus"

// histBucketsMs are the fixed latency-histogram boundaries from spec §4.1.
var histBucketsMs = []float64{0.5, 1, 2, 5, 10, 20, 50, 100}

// GaugeTable is the probe worker's metric store, keyed by target name.
// prometheus.GaugeVec and prometheus.HistogramVec are internally
// synchronized (atomic pointer-swap per series under the hood), giving
// single-writer (the probe worker), lock-free-on-the-hot-path-for-readers
// semantics without any bespoke locking of our own (spec §5, §9).
type GaugeTable struct {
	udpLatency     *prometheus.GaugeVec
	udpSuccess     *prometheus.GaugeVec
	udpHist        *prometheus.HistogramVec
	tcpLatency     *prometheus.GaugeVec
	tcpSuccess     *prometheus.GaugeVec
	tcpHist        *prometheus.HistogramVec
	tcpThroughput  *prometheus.GaugeVec
}

// NewGaugeTable creates and registers the probe's exported metric family,
// matching the stable names from spec §6.
func NewGaugeTable(reg prometheus.Registerer) *GaugeTable {
	t := &GaugeTable{
		udpLatency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "network_probe_udp_latency_ms",
			Help: "Last measured UDP round-trip latency in milliseconds.",
		}, []string{"target"}),
		udpSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "network_probe_udp_success",
			Help: "1 if the last UDP probe cycle completed, 0 otherwise.",
		}, []string{"target"}),
		udpHist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "network_probe_udp_latency_ms_hist",
			Help:    "Distribution of UDP round-trip latencies in milliseconds.",
			Buckets: histBucketsMs,
		}, []string{"target"}),
		tcpLatency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "network_probe_tcp_latency_ms",
			Help: "Last measured TCP handshake latency in milliseconds.",
		}, []string{"target"}),
		tcpSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "network_probe_tcp_success",
			Help: "1 if the last TCP probe cycle completed, 0 otherwise.",
		}, []string{"target"}),
		tcpHist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "network_probe_tcp_latency_ms_hist",
			Help:    "Distribution of TCP handshake latencies in milliseconds.",
			Buckets: histBucketsMs,
		}, []string{"target"}),
		tcpThroughput: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "network_probe_tcp_throughput_mbps",
			Help: "Last measured throttled TCP bulk-send throughput in Mbps.",
		}, []string{"target"}),
	}
	reg.MustRegister(
		t.udpLatency, t.udpSuccess, t.udpHist,
		t.tcpLatency, t.tcpSuccess, t.tcpHist,
		t.tcpThroughput,
	)
	return t
}

// UpdateUDP publishes a new UDP RTT observation for target. On failure the
// latency gauge and histogram are left untouched (spec §4.1 "retains the
// last good observation gauge unchanged"); only success flips to 0.
func (t *GaugeTable) UpdateUDP(target string, latencyMs float64, success bool) {
	if success {
		t.udpLatency.WithLabelValues(target).Set(latencyMs)
		t.udpHist.WithLabelValues(target).Observe(latencyMs)
		t.udpSuccess.WithLabelValues(target).Set(1)
	} else {
		t.udpSuccess.WithLabelValues(target).Set(0)
	}
}

// UpdateTCP publishes a new TCP handshake observation for target.
func (t *GaugeTable) UpdateTCP(target string, latencyMs float64, success bool) {
	if success {
		t.tcpLatency.WithLabelValues(target).Set(latencyMs)
		t.tcpHist.WithLabelValues(target).Observe(latencyMs)
		t.tcpSuccess.WithLabelValues(target).Set(1)
	} else {
		t.tcpSuccess.WithLabelValues(target).Set(0)
	}
}

// UpdateThroughput publishes a new throttled TCP throughput observation
// for target. Called only on cadence cycles (spec §4.1.3); failures
// simply skip the call, leaving the prior value exported.
func (t *GaugeTable) UpdateThroughput(target string, mbps float64) {
	t.tcpThroughput.WithLabelValues(target).Set(mbps)
}
