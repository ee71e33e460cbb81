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

import "fmt"

// PatchError is returned by Patcher.Patch. Permanent
// indicates the target workload disappeared and should be dropped from the
// control state for the process lifetime (spec §7 PatchPermanent); a
// non-permanent PatchError is PatchTransient and should be retried next tick.
type PatchError struct {
	Target    string
	Permanent bool
	Err       error
}

func (e *PatchError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("patch %s: %s: %v", e.Target, kind, e.Err)
}

func (e *PatchError) Unwrap() error {
	return e.Err
}

func transientError(target string, err error) error {
	return &PatchError{Target: target, Permanent: false, Err: err}
}

func permanentError(target string, err error) error {
	return &PatchError{Target: target, Permanent: true, Err: err}
}
