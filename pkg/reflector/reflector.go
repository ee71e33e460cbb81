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

// Package reflector implements the stateless UDP echo endpoint (spec
// §4.2) co-located with each UDP-critical workload: every received
// datagram is reflected back to its sender, unchanged.
package reflector

import (
	"errors"
	"net"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// MaxDatagramSize matches the Probe's fixed payload size plus margin
// (spec §4.2).
const MaxDatagramSize = 256

// Reflector owns one UDP socket and echoes every datagram it receives.
// It is stateless: no per-peer structure is kept between datagrams.
type Reflector struct {
	logger log.Logger
	conn   *net.UDPConn
}

// Listen opens a UDP socket on addr (e.g. ":7000").
func Listen(logger log.Logger, addr string) (*Reflector, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return &Reflector{logger: logger, conn: conn}, nil
}

// LocalAddr returns the bound address, useful for tests that bind to
// port 0 and need to discover the assigned port.
func (r *Reflector) LocalAddr() net.Addr {
	return r.conn.LocalAddr()
}

// Run reads datagrams in a loop and echoes each one back to its sender
// verbatim. It returns only when the socket is closed (typically via
// Close, called from a supervisory shutdown). Any other receive error is
// logged and the loop continues (spec §4.2 "on any receive error, log and
// continue; the process must not terminate on transient socket errors").
func (r *Reflector) Run() error {
	buf := make([]byte, MaxDatagramSize)
	for {
		n, peer, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			level.Warn(r.logger).Log("msg", "reflector receive error", "err", err)
			continue
		}
		if _, err := r.conn.WriteToUDP(buf[:n], peer); err != nil {
			level.Warn(r.logger).Log("msg", "reflector echo write error", "peer", peer.String(), "err", err)
		}
	}
}

// Close closes the underlying socket, unblocking Run.
func (r *Reflector) Close() error {
	return r.conn.Close()
}
