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

package orchestrator

import (
	"context"

	"github.com/gke-flowmanager/flowmanager/pkg/flowconfig"
)

// TargetState is the controller's in-memory view of one best-effort
// target's last known enforced bandwidth (spec §3). Owned exclusively by
// the controller's tick loop; no locking required (spec §5).
type TargetState struct {
	Namespace        string
	Deployment       string
	InitialBandwidth int
	Bandwidth        int
}

// NewControlState seeds in-memory state for every configured best-effort
// target, reading each one's current bandwidth from the orchestrator and
// falling back to the configured initial value if unreadable (spec §3).
func NewControlState(ctx context.Context, patcher *Patcher, targets []flowconfig.BestEffortTarget) []*TargetState {
	states := make([]*TargetState, len(targets))
	for i, t := range targets {
		bw, err := patcher.ReadBandwidth(ctx, t.Namespace, t.Deployment)
		if err != nil {
			bw = t.InitialBandwidth
		}
		states[i] = &TargetState{
			Namespace:        t.Namespace,
			Deployment:       t.Deployment,
			InitialBandwidth: t.InitialBandwidth,
			Bandwidth:        bw,
		}
	}
	return states
}

// ApplyResults folds a tick's PatchAll outcomes back into the in-memory
// control state (spec §4.3.4, §7):
//
//   - success: Bandwidth updated to the value that was patched.
//   - PatchTransient: Bandwidth left unchanged, retried next tick.
//   - PatchPermanent: the target is dropped entirely; it will not appear
//     in the returned slice and is no longer patched for the process
//     lifetime.
//
// It returns the surviving state slice in the same relative order as
// states, with permanently-failed targets removed.
func ApplyResults(states []*TargetState, results []PatchResult) []*TargetState {
	failed := make(map[string]bool, len(results))
	succeeded := make(map[string]int, len(results))
	for _, r := range results {
		key := r.Namespace + "/" + r.Deployment
		if r.Err == nil {
			succeeded[key] = r.Mbps
			continue
		}
		var patchErr *PatchError
		if pe, ok := r.Err.(*PatchError); ok {
			patchErr = pe
		}
		if patchErr != nil && patchErr.Permanent {
			failed[key] = true
		}
	}

	out := states[:0]
	for _, s := range states {
		key := s.Namespace + "/" + s.Deployment
		if failed[key] {
			continue
		}
		if bw, ok := succeeded[key]; ok {
			s.Bandwidth = bw
		}
		out = append(out, s)
	}
	return out
}
