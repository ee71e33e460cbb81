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
	"net"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gke-flowmanager/flowmanager/pkg/flowconfig"
)

// throughputCadence is K from spec §4.1 step 3: throughput is measured
// only on every Kth cycle.
const throughputCadence = 5

// target is one UDP or TCP probe target derived from a critical app's
// static config.
type target struct {
	name     string
	protocol flowconfig.Protocol
	address  string
	udp      *udpConn
}

// Prober runs one probe cycle, sequentially, across every configured
// target (spec §5: "one worker performs probes for all targets
// sequentially within a cycle").
type Prober struct {
	logger  log.Logger
	gauges  *GaugeTable
	timeout time.Duration
	targets []*target
	cycle   int
}

// NewProber resolves and logs each target's IP once at startup (spec.md
// supplemented feature: network_probe.py's resolved-IP startup logging),
// dials the persistent UDP sockets for UDP targets, and returns a Prober
// ready to run cycles.
func NewProber(logger log.Logger, reg prometheus.Registerer, apps []flowconfig.CriticalApp, timeout time.Duration) (*Prober, error) {
	gauges := NewGaugeTable(reg)

	targets := make([]*target, 0, len(apps))
	for _, app := range apps {
		addr := app.Target()
		logResolvedIP(logger, app.Name, app.Service)

		t := &target{name: app.Name, protocol: app.Protocol, address: addr}
		if app.Protocol == flowconfig.ProtocolUDP {
			uc, err := dialUDP(addr, timeout)
			if err != nil {
				level.Warn(logger).Log("msg", "initial UDP dial failed, will retry next cycle", "target", app.Name, "err", err)
			} else {
				t.udp = uc
			}
		}
		targets = append(targets, t)
	}

	return &Prober{
		logger:  logger,
		gauges:  gauges,
		timeout: timeout,
		targets: targets,
	}, nil
}

func logResolvedIP(logger log.Logger, name, host string) {
	ips, err := net.LookupHost(host)
	if err != nil || len(ips) == 0 {
		level.Warn(logger).Log("msg", "DNS resolution failed at startup, will retry per-cycle", "target", name, "host", host, "err", err)
		return
	}
	level.Info(logger).Log("msg", "resolved critical app target", "target", name, "host", host, "ip", ips[0])
}

// RunCycle performs one probe cycle across every target: UDP RTT, TCP
// handshake, and (on cadence) TCP throughput. Each target's failures are
// local and never affect any other target (spec §4.1 "Failure
// semantics").
func (p *Prober) RunCycle() {
	p.cycle++
	measureThroughput := p.cycle%throughputCadence == 0

	for _, t := range p.targets {
		switch t.protocol {
		case flowconfig.ProtocolUDP:
			p.runUDP(t)
		case flowconfig.ProtocolTCP:
			p.runTCP(t, measureThroughput)
		}
	}
}

func (p *Prober) runUDP(t *target) {
	if t.udp == nil {
		uc, err := dialUDP(t.address, p.timeout)
		if err != nil {
			level.Warn(p.logger).Log("msg", "UDP dial failed", "target", t.name, "err", err)
			p.gauges.UpdateUDP(t.name, 0, false)
			return
		}
		t.udp = uc
	}
	latencyMs, ok := t.udp.burstRTT()
	p.gauges.UpdateUDP(t.name, latencyMs, ok)
	if !ok {
		level.Debug(p.logger).Log("msg", "UDP burst had no successful returns", "target", t.name)
	}
}

func (p *Prober) runTCP(t *target, measureThroughput bool) {
	latencyMs, ok := measureTCPHandshake(t.address, p.timeout)
	p.gauges.UpdateTCP(t.name, latencyMs, ok)
	if !ok {
		level.Debug(p.logger).Log("msg", "TCP handshake failed", "target", t.name)
	}

	if !measureThroughput {
		return
	}
	mbps, ok := measureTCPThroughput(t.address, p.timeout)
	if !ok {
		level.Debug(p.logger).Log("msg", "TCP throughput measurement failed", "target", t.name)
		return
	}
	p.gauges.UpdateThroughput(t.name, mbps)
}

// Close releases the persistent UDP sockets.
func (p *Prober) Close() {
	for _, t := range p.targets {
		if t.udp != nil {
			_ = t.udp.Close()
		}
	}
}
