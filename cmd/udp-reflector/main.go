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

// Command udp-reflector runs the stateless UDP echo endpoint (spec §4.2)
// co-located with a UDP-critical workload.
package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/run"

	"github.com/gke-flowmanager/flowmanager/pkg/reflector"
)

func main() {
	a := kingpin.New("udp-reflector", "Flow Manager UDP reflector")
	a.HelpFlag.Short('h')

	logLevel := a.Flag("log.level", "One of 'debug', 'info', 'warn', 'error'.").
		Envar("LOG_LEVEL").Default("info").Enum("debug", "info", "warn", "error")
	listenAddr := a.Flag("listen-addr", "Address to bind the UDP echo socket on.").
		Envar("REFLECTOR_ADDR").Default(":7000").String()

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

	refl, err := reflector.Listen(logger, *listenAddr)
	if err != nil {
		level.Error(logger).Log("msg", "failed to bind reflector socket", "addr", *listenAddr, "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "reflector listening", "addr", refl.LocalAddr().String())

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
		g.Add(
			func() error {
				return refl.Run()
			},
			func(error) {
				_ = refl.Close()
			},
		)
	}

	if err := g.Run(); err != nil {
		level.Error(logger).Log("msg", "reflector exited with error", "err", err)
		os.Exit(1)
	}
}
