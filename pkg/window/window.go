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

// Package window implements the fixed-capacity rolling sample window and
// the robust IQR jitter statistic computed over it (spec §3, §4.3.2).
package window

import (
	"math"
	"sort"
)

// minSamplesForJitter is the minimum window length before jitter is
// meaningful; below it jitter is reported as 0 (spec §3 invariant).
const minSamplesForJitter = 5

// Rolling is a FIFO buffer of the most recent N latency samples (ms) for
// one critical application. Capacity is pre-allocated once at startup per
// spec §9 ("no per-tick allocation should be required in the hot path");
// oldest sample is evicted on overflow. Not safe for concurrent use — the
// controller's single tick-loop goroutine owns it exclusively (spec §5).
type Rolling struct {
	buf      []float64
	capacity int
	next     int
	len      int
}

// New returns a Rolling window with the given capacity. Capacity must be
// >= 1; the controller validates window_size >= 5 at config load time.
func New(capacity int) *Rolling {
	return &Rolling{
		buf:      make([]float64, capacity),
		capacity: capacity,
	}
}

// Add appends a sample, evicting the oldest one if the window is full.
func (r *Rolling) Add(sample float64) {
	r.buf[r.next] = sample
	r.next = (r.next + 1) % r.capacity
	if r.len < r.capacity {
		r.len++
	}
}

// Len returns the current number of samples held (<= capacity).
func (r *Rolling) Len() int {
	return r.len
}

// Samples returns the current contents in insertion order (oldest first).
// The returned slice is a copy; callers may mutate it freely.
func (r *Rolling) Samples() []float64 {
	out := make([]float64, r.len)
	if r.len < r.capacity {
		copy(out, r.buf[:r.len])
		return out
	}
	// Buffer is full: oldest sample is at r.next (next write position).
	copy(out, r.buf[r.next:])
	copy(out[r.capacity-r.next:], r.buf[:r.next])
	return out
}

// Jitter computes the interquartile range (Q3 - Q1) of the window's
// current contents, clamped to a non-negative value and rounded to
// millisecond precision of at least three fractional digits (spec
// §4.3.2). Returns 0 when fewer than 5 samples are present.
func (r *Rolling) Jitter() float64 {
	return IQR(r.Samples())
}

// IQR computes the interquartile-range jitter statistic for an arbitrary
// sample slice, following the exact index formula in spec §4.3.2:
//
//	Q1 = samples[floor(n/4)]
//	Q3 = samples[floor(3n/4)]
//	jitter = max(0, Q3 - Q1)
//
// It is insensitive to the order of the input slice (sorts internally)
// and to outliers beyond the Q1/Q3 index positions, which is the whole
// point of choosing IQR over a variance-based estimator (spec §4.3.2
// rationale).
func IQR(samples []float64) float64 {
	n := len(samples)
	if n < minSamplesForJitter {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, samples)
	sort.Float64s(sorted)

	q1 := sorted[n/4]
	q3 := sorted[(3*n)/4]

	iqr := q3 - q1
	if iqr < 0 {
		iqr = 0
	}
	return round3(iqr)
}

// round3 rounds to 3 decimal places, the minimum millisecond precision
// spec §4.3.2 requires.
func round3(v float64) float64 {
	const scale = 1000.0
	return math.Round(v*scale) / scale
}
