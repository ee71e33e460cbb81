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

// Command flow-manager runs the control loop (spec §4.3): it scrapes the
// network-probe's sample exposition, evaluates critical application
// SLAs, and patches best-effort deployments' egress bandwidth through
// the cluster orchestrator.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gke-flowmanager/flowmanager/pkg/flowconfig"
	"github.com/gke-flowmanager/flowmanager/pkg/flowmanager"
	"github.com/gke-flowmanager/flowmanager/pkg/orchestrator"
	"github.com/gke-flowmanager/flowmanager/pkg/probe"
)

func main() {
	a := kingpin.New("flow-manager", "Flow Manager control loop")
	a.HelpFlag.Short('h')

	logLevel := a.Flag("log.level", "One of 'debug', 'info', 'warn', 'error'.").
		Envar("LOG_LEVEL").Default("info").Enum("debug", "info", "warn", "error")
	configPath := a.Flag("config.path", "Path to the critical-apps SLA document.").
		Envar(flowconfig.EnvConfigPath).Default(flowconfig.DefaultConfigPath).String()
	probeService := a.Flag("probe.service", "host:port of the network-probe's /metrics endpoint.").
		Envar(flowconfig.EnvProbeService).Default("network-probe:9200").String()
	metricsAddr := a.Flag("metrics.listen-address", "Address to serve this process's own /metrics on.").
		Default(":9201").String()
	kubeconfig := a.Flag("kubeconfig", "Path to a kubeconfig file. Empty uses in-cluster config.").
		Envar("KUBECONFIG").Default("").String()

	if _, err := a.Parse(os.Args[1:]); err != nil {
		a.Usage(os.Args[1:])
		os.Exit(2)
	}

	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	switch strings.ToLower(*logLevel) {
	case "debug":
		logger = level.NewFilter(logger, level.AllowDebug())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	path := flowconfig.ConfigPath()
	if *configPath != "" {
		path = *configPath
	}
	system, err := flowconfig.Load(path)
	if err != nil {
		level.Error(logger).Log("msg", "failed to load config", "path", path, "err", err)
		os.Exit(1)
	}
	if err := system.Validate(); err != nil {
		level.Error(logger).Log("msg", "config failed validation", "path", path, "err", err)
		os.Exit(1)
	}

	level.Info(logger).Log("msg", "starting flow-manager",
		"critical_apps", len(system.CriticalApps), "best_effort_targets", len(system.BestEffortTargets),
		"control_interval", system.Control.ControlInterval())
	for _, app := range system.UDPApps() {
		level.Info(logger).Log("msg", "critical app under SLA", "name", app.Name, "max_jitter_ms", app.MaxJitterMs, "priority", app.Priority)
	}
	for _, t := range system.BestEffortTargets {
		level.Info(logger).Log("msg", "best-effort target under control", "deployment", t.Deployment, "namespace", t.Namespace, "initial_bandwidth", t.InitialBandwidth)
	}

	clientset, err := orchestrator.NewClientset(*kubeconfig)
	if err != nil {
		level.Error(logger).Log("msg", "failed to build kubernetes clientset", "err", err)
		os.Exit(1)
	}
	patcher := orchestrator.NewPatcher(clientset)

	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	states := orchestrator.NewControlState(startCtx, patcher, system.BestEffortTargets)
	startCancel()

	reg := prometheus.NewRegistry()
	probeURL := "http://" + *probeService + "/metrics"
	ctrl := flowmanager.New(logger, reg, system, patcher, probeURL, states)

	addr := *metricsAddr
	if port := flowconfig.MetricsPort(0); port != 0 {
		addr = ":" + strconv.Itoa(port)
	}
	_, runMetrics, stop, err := probe.ListenMetrics(addr, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err != nil {
		level.Error(logger).Log("msg", "failed to bind metrics listener", "addr", addr, "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "serving controller metrics", "addr", addr)

	var g run.Group
	{
		term := make(chan os.Signal, 1)
		cancel := make(chan struct{})
		signal.Notify(term, os.Interrupt, syscall.SIGTERM)
		g.Add(
			func() error {
				select {
				case <-term:
					level.Info(logger).Log("msg", "received shutdown signal, exiting gracefully...")
				case <-cancel:
				}
				return nil
			},
			func(error) { close(cancel) },
		)
	}
	{
		cancel := make(chan struct{})
		g.Add(
			func() error {
				ticker := time.NewTicker(system.Control.ControlInterval())
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						ctrl.Tick(context.Background())
					case <-cancel:
						return nil
					}
				}
			},
			func(error) {
				close(cancel)
			},
		)
	}
	{
		g.Add(
			runMetrics,
			func(error) {
				stop(nil)
			},
		)
	}

	if err := g.Run(); err != nil {
		level.Error(logger).Log("msg", "flow-manager exited with error", "err", err)
		os.Exit(1)
	}
}
