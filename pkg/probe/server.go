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
	"context"
	"fmt"
	"net"
	"net/http"
)

// ListenMetrics binds a GET /metrics HTTP server to addr serving handler
// (built by callers via promhttp.HandlerFor on the probe's registry). It
// runs independently of the probe worker goroutine: "the scrape endpoint
// must remain responsive even if every probe target is unreachable"
// (spec §4.1), which holds here because serving the gauge table never
// blocks on probe network I/O.
//
// The returned run/stop pair matches the (execute, interrupt) shape
// oklog/run.Group expects: run blocks serving until the listener closes,
// stop triggers a graceful shutdown.
func ListenMetrics(addr string, handler http.Handler) (ln net.Listener, run func() error, stop func(error), err error) {
	ln, err = net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("bind metrics listener %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux}

	run = func() error {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
	stop = func(error) {
		_ = srv.Shutdown(context.Background())
	}
	return ln, run, stop, nil
}
