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

package probe

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g *prometheus.GaugeVec, labels prometheus.Labels) float64 {
	t.Helper()
	m, err := g.GetMetricWith(labels)
	require.NoError(t, err)
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	return out.GetGauge().GetValue()
}

func TestGaugeTable_UDPSuccessSetsLatencyAndSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	gt := NewGaugeTable(reg)

	gt.UpdateUDP("robot-control", 1.5, true)

	assert.Equal(t, 1.5, gaugeValue(t, gt.udpLatency, prometheus.Labels{"target": "robot-control"}))
	assert.Equal(t, 1.0, gaugeValue(t, gt.udpSuccess, prometheus.Labels{"target": "robot-control"}))
}

func TestGaugeTable_UDPFailureLeavesLatencyUnchanged(t *testing.T) {
	reg := prometheus.NewRegistry()
	gt := NewGaugeTable(reg)

	gt.UpdateUDP("robot-control", 2.0, true)
	gt.UpdateUDP("robot-control", 999, false)

	assert.Equal(t, 2.0, gaugeValue(t, gt.udpLatency, prometheus.Labels{"target": "robot-control"}))
	assert.Equal(t, 0.0, gaugeValue(t, gt.udpSuccess, prometheus.Labels{"target": "robot-control"}))
}

func TestGaugeTable_TCPSuccessSetsLatencyAndSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	gt := NewGaugeTable(reg)

	gt.UpdateTCP("safety-scanner", 0.8, true)

	assert.Equal(t, 0.8, gaugeValue(t, gt.tcpLatency, prometheus.Labels{"target": "safety-scanner"}))
	assert.Equal(t, 1.0, gaugeValue(t, gt.tcpSuccess, prometheus.Labels{"target": "safety-scanner"}))
}

func TestGaugeTable_ThroughputIsSetDirectly(t *testing.T) {
	reg := prometheus.NewRegistry()
	gt := NewGaugeTable(reg)

	gt.UpdateThroughput("bulk-target", 123.4)

	assert.Equal(t, 123.4, gaugeValue(t, gt.tcpThroughput, prometheus.Labels{"target": "bulk-target"}))
}
