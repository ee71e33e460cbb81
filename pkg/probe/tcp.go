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
)

// measureTCPHandshake opens a TCP connection with the given timeout and
// returns the wall-clock elapsed from dial to established connection, in
// ms. The connection is closed immediately afterward; TCP sockets are
// opened and closed per cycle, unlike the UDP socket (spec §5).
func measureTCPHandshake(target string, timeout time.Duration) (latencyMs float64, ok bool) {
	start := time.Now()
	conn, err := net.DialTimeout("tcp", target, timeout)
	if err != nil {
		return 0, false
	}
	elapsed := time.Since(start)
	_ = conn.Close()
	return float64(elapsed.Microseconds()) / 1000.0, true
}

// throughputWriteDuration is the fixed burst duration for a throttled
// throughput measurement (spec §4.1 step 3).
const throughputWriteDuration = 500 * time.Millisecond

// throughputBufferSize is the fixed write-buffer size for each send call
// during a throughput burst.
const throughputBufferSize = 64 * 1024

// measureTCPThroughput opens a TCP connection, writes a fixed-size buffer
// repeatedly for a fixed duration, then reports bytes_written*8/elapsed
// as Mbps. It is only invoked on cadence cycles (every Kth, spec §4.1
// step 3), since this test deliberately saturates the link for its
// duration.
func measureTCPThroughput(target string, dialTimeout time.Duration) (mbps float64, ok bool) {
	conn, err := net.DialTimeout("tcp", target, dialTimeout)
	if err != nil {
		return 0, false
	}
	defer conn.Close()

	buf := make([]byte, throughputBufferSize)
	deadline := time.Now().Add(throughputWriteDuration)
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return 0, false
	}

	start := time.Now()
	var written int64
	for time.Now().Before(deadline) {
		n, err := conn.Write(buf)
		written += int64(n)
		if err != nil {
			break
		}
	}
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 || written == 0 {
		return 0, false
	}
	return float64(written) * 8 / elapsed / 1e6, true
}
