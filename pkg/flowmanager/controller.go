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

import (
	"context"
	"net/http"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/gke-flowmanager/flowmanager/pkg/aimd"
	"github.com/gke-flowmanager/flowmanager/pkg/flowconfig"
	"github.com/gke-flowmanager/flowmanager/pkg/orchestrator"
	"github.com/gke-flowmanager/flowmanager/pkg/sla"
	"github.com/gke-flowmanager/flowmanager/pkg/window"
)

// Controller runs the Flow Manager's single-tick control loop (spec
// §4.3): ingest samples, compute jitter, evaluate SLAs, decide, enforce,
// patch. Owned exclusively by one goroutine; its rolling windows and
// control state need no locking (spec §5).
type Controller struct {
	logger   log.Logger
	client   *http.Client
	probeURL string
	system   *flowconfig.System
	patcher  *orchestrator.Patcher
	metrics  *controllerMetrics

	windows map[string]*window.Rolling
	states  []*orchestrator.TargetState

	consecutiveScrapeFailures int
}

// New builds a Controller. states is the seeded in-memory control state
// for every best-effort target (from orchestrator.NewControlState).
func New(logger log.Logger, reg prometheus.Registerer, system *flowconfig.System, patcher *orchestrator.Patcher, probeURL string, states []*orchestrator.TargetState) *Controller {
	windows := make(map[string]*window.Rolling, len(system.CriticalApps))
	for _, app := range system.CriticalApps {
		windows[app.Name] = window.New(system.Control.WindowSize)
	}
	return &Controller{
		logger:   logger,
		client:   &http.Client{},
		probeURL: probeURL,
		system:   system,
		patcher:  patcher,
		metrics:  newControllerMetrics(reg),
		windows:  windows,
		states:   states,
	}
}

// Tick executes exactly one control iteration. It never returns an error:
// every failure mode named in spec §4.3.7/§7 is caught here and logged,
// per "the control loop must never unwind across a tick boundary due to
// an unhandled error."
func (c *Controller) Tick(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, scrapeFetchTimeout*time.Second)
	defer cancel()

	families, err := fetchScrape(fetchCtx, c.client, c.probeURL)
	if err != nil {
		c.consecutiveScrapeFailures++
		if c.consecutiveScrapeFailures == 1 {
			level.Warn(c.logger).Log("msg", "probe scrape unavailable, skipping sample ingestion", "err", err)
		}
	} else {
		if c.consecutiveScrapeFailures > 0 {
			level.Info(c.logger).Log("msg", "probe scrape recovered", "failed_ticks", c.consecutiveScrapeFailures)
		}
		c.consecutiveScrapeFailures = 0
		c.ingest(families)
	}

	results := c.evaluate()
	decision := sla.Decide(results)
	c.logDecision(decision, results)

	c.enforce(ctx, decision)
}

// ingest appends exactly one sample per critical application to its
// rolling window, when the scrape carried a usable value (spec §4.3.1).
func (c *Controller) ingest(families map[string]*dto.MetricFamily) {
	for _, app := range c.system.CriticalApps {
		v, ok := sampleForApp(families, app)
		if !ok {
			continue
		}
		c.windows[app.Name].Add(v)
	}
}

// evaluate computes the SLA result for every critical application and
// publishes its jitter gauge.
func (c *Controller) evaluate() []sla.Result {
	results := make([]sla.Result, 0, len(c.system.CriticalApps))
	for _, app := range c.system.CriticalApps {
		w := c.windows[app.Name]
		jitter := w.Jitter()
		r := sla.Evaluate(app, jitter, w.Len())
		results = append(results, r)

		c.metrics.recordJitter(appJitter{
			name:     app.Name,
			host:     app.Service,
			protocol: string(app.Protocol),
			jitterMs: jitter,
		})
	}
	return results
}

func (c *Controller) logDecision(decision sla.Decision, results []sla.Result) {
	switch decision.Action {
	case aimd.Throttle:
		level.Info(c.logger).Log("msg", "decision", "action", decision.Action.String(), "reason", decision.Reason)
	case aimd.Release:
		level.Info(c.logger).Log("msg", "decision", "action", decision.Action.String(), "reason", decision.Reason)
	default:
		level.Debug(c.logger).Log("msg", "decision", "action", decision.Action.String(), "reason", decision.Reason)
	}
}

// enforce applies the Asymmetric AIMD law to every best-effort target and
// patches the orchestrator for any target whose computed bandwidth
// changed (spec §4.3.5). Patches for all changed targets are issued
// concurrently via orchestrator.Patcher.PatchAll; ApplyResults folds the
// outcomes back into in-memory state.
func (c *Controller) enforce(ctx context.Context, decision sla.Decision) {
	bounds := aimd.Bounds{MinMbps: c.system.Control.MinBandwidthMbps, MaxMbps: c.system.Control.MaxBandwidthMbps}

	var requests []orchestrator.PatchRequest
	for _, s := range c.states {
		newBW := aimd.Apply(decision.Action, s.Bandwidth, aimd.DecreaseFractionDefault, c.system.Control.StepUp, bounds)
		if newBW == s.Bandwidth {
			// spec §3 invariant: never patch when the computed value
			// doesn't change (also covers the B_min/B_max no-op cases).
			continue
		}
		level.Info(c.logger).Log("msg", "bandwidth transition",
			"deployment", s.Deployment, "namespace", s.Namespace,
			"previous_mbps", s.Bandwidth, "new_mbps", newBW, "delta", newBW-s.Bandwidth)
		requests = append(requests, orchestrator.PatchRequest{Namespace: s.Namespace, Deployment: s.Deployment, Mbps: newBW})
	}

	if len(requests) > 0 {
		results := c.patcher.PatchAll(ctx, requests)
		for _, r := range results {
			if r.Err != nil {
				level.Warn(c.logger).Log("msg", "patch failed", "deployment", r.Deployment, "namespace", r.Namespace, "err", r.Err)
			}
		}
		c.states = orchestrator.ApplyResults(c.states, results)
	}

	for _, s := range c.states {
		c.metrics.recordBandwidth(s.Deployment, s.Namespace, s.Bandwidth)
	}
}
