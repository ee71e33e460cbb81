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

// Command network-probe runs the active-measurement worker (spec §4.1):
// it cycles UDP RTT, TCP handshake and TCP throughput probes against the
// configured critical applications and serves the results for the
// flow-manager to scrape.
package main

import (
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
	"github.com/gke-flowmanager/flowmanager/pkg/probe"
)

func main() {
	a := kingpin.New("network-probe", "Flow Manager active probe worker")
	a.HelpFlag.Short('h')

	logLevel := a.Flag("log.level", "One of 'debug', 'info', 'warn', 'error'.").
		Envar("LOG_LEVEL").Default("info").Enum("debug", "info", "warn", "error")
	configPath := a.Flag("config.path", "Path to the critical-apps SLA document.").
		Envar(flowconfig.EnvConfigPath).Default(flowconfig.DefaultConfigPath).String()
	metricsAddr := a.Flag("metrics.listen-address", "Address to serve /metrics on.").
		Default(":9200").String()
	probeTimeout := a.Flag("probe.timeout", "Per-probe dial/read timeout.").
		Default("500ms").Duration()

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
	apps := flowconfig.ApplyTargetOverrides(system.CriticalApps)

	level.Info(logger).Log("msg", "starting network-probe",
		"critical_apps", len(apps), "probe_interval", system.Control.ProbeInterval())
	for _, app := range apps {
		level.Info(logger).Log("msg", "configured critical app",
			"name", app.Name, "protocol", app.Protocol, "target", app.Target(),
			"max_jitter_ms", app.MaxJitterMs, "priority", app.Priority)
	}

	reg := prometheus.NewRegistry()
	prober, err := probe.NewProber(logger, reg, apps, *probeTimeout)
	if err != nil {
		level.Error(logger).Log("msg", "failed to build prober", "err", err)
		os.Exit(1)
	}

	addr := *metricsAddr
	if port := flowconfig.MetricsPort(0); port != 0 {
		addr = ":" + strconv.Itoa(port)
	}
	_, runMetrics, stop, err := probe.ListenMetrics(addr, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err != nil {
		level.Error(logger).Log("msg", "failed to bind metrics listener", "addr", addr, "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "serving probe metrics", "addr", addr)

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
				ticker := time.NewTicker(system.Control.ProbeInterval())
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						prober.RunCycle()
					case <-cancel:
						return nil
					}
				}
			},
			func(error) {
				close(cancel)
				prober.Close()
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
		level.Error(logger).Log("msg", "network-probe exited with error", "err", err)
		os.Exit(1)
	}
}
