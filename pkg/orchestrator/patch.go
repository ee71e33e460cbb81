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
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"

	"github.com/gke-flowmanager/flowmanager/pkg/aimd"
)

// Patcher reads and patches the egress-bandwidth annotation on best-effort
// workloads. It wraps a shared clientset and is safe for concurrent use
// (spec §5, "Orchestrator client is shared across patch calls and must be
// safe for concurrent use") because kubernetes.Interface implementations
// are themselves safe for concurrent use.
type Patcher struct {
	clientset kubernetes.Interface
}

// NewPatcher wraps an existing clientset.
func NewPatcher(clientset kubernetes.Interface) *Patcher {
	return &Patcher{clientset: clientset}
}

// ReadBandwidth reads the current egress-bandwidth annotation from the
// named Deployment's pod template. Callers fall back to the configured
// initial bandwidth on any error (spec §3, "Control state ... falling back
// to the configured initial value if unreadable").
func (p *Patcher) ReadBandwidth(ctx context.Context, namespace, deployment string) (int, error) {
	dep, err := p.clientset.AppsV1().Deployments(namespace).Get(ctx, deployment, metav1.GetOptions{})
	if err != nil {
		return 0, fmt.Errorf("get deployment %s/%s: %w", namespace, deployment, err)
	}
	value, ok := dep.Spec.Template.Annotations[aimd.AnnotationKey]
	if !ok {
		return 0, fmt.Errorf("deployment %s/%s: annotation %s not set", namespace, deployment, aimd.AnnotationKey)
	}
	return aimd.ParseAnnotation(value)
}

// mergePatchBody builds the JSON merge patch body that sets the
// egress-bandwidth annotation on a Deployment's pod template, mirroring
// pkg/operator/target_status.go's patchPodMonitoringStatus.
func mergePatchBody(mbps int) ([]byte, error) {
	patch := map[string]interface{}{
		"spec": map[string]interface{}{
			"template": map[string]interface{}{
				"metadata": map[string]interface{}{
					"annotations": map[string]interface{}{
						aimd.AnnotationKey: aimd.FormatAnnotation(mbps),
					},
				},
			},
		},
	}
	return json.Marshal(patch)
}

// Patch sets the named Deployment's egress-bandwidth annotation to mbps via
// a JSON merge patch. Errors are classified per spec §7: a missing
// workload is PatchPermanent, anything else is PatchTransient.
func (p *Patcher) Patch(ctx context.Context, namespace, deployment string, mbps int) error {
	target := fmt.Sprintf("%s/%s", namespace, deployment)

	body, err := mergePatchBody(mbps)
	if err != nil {
		return transientError(target, fmt.Errorf("marshal patch: %w", err))
	}

	_, err = p.clientset.AppsV1().Deployments(namespace).Patch(
		ctx, deployment, types.MergePatchType, body, metav1.PatchOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return permanentError(target, err)
		}
		return transientError(target, err)
	}
	return nil
}

// PatchRequest is one best-effort target's desired new bandwidth for the
// current tick.
type PatchRequest struct {
	Namespace  string
	Deployment string
	Mbps       int
}

// PatchResult pairs a PatchRequest with the outcome of applying it.
type PatchResult struct {
	PatchRequest
	Err error
}

// PatchAll issues patches for every request concurrently and waits for all
// of them to complete before returning, satisfying spec §5's "issued
// concurrently, but each tick must complete ... before the next tick
// begins." Unlike errgroup.Group's usual fail-fast behavior, a failing
// patch does not cancel the others — every target gets an independent
// outcome so the controller can classify and act on each one.
func (p *Patcher) PatchAll(ctx context.Context, requests []PatchRequest) []PatchResult {
	results := make([]PatchResult, len(requests))
	var g errgroup.Group
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			results[i] = PatchResult{PatchRequest: req, Err: p.Patch(ctx, req.Namespace, req.Deployment, req.Mbps)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
