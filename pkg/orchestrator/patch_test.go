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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/gke-flowmanager/flowmanager/pkg/aimd"
	"github.com/gke-flowmanager/flowmanager/pkg/flowconfig"
)

func fakeDeployment(ns, name, annotationValue string) *appsv1.Deployment {
	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: ns},
		Spec: appsv1.DeploymentSpec{
			Template: corev1.PodTemplateSpec{},
		},
	}
	if annotationValue != "" {
		dep.Spec.Template.Annotations = map[string]string{
			aimd.AnnotationKey: annotationValue,
		}
	}
	return dep
}

func TestReadBandwidth_ParsesExistingAnnotation(t *testing.T) {
	cs := fake.NewSimpleClientset(fakeDeployment("ns", "bulk", "500M"))
	p := NewPatcher(cs)
	bw, err := p.ReadBandwidth(context.Background(), "ns", "bulk")
	require.NoError(t, err)
	assert.Equal(t, 500, bw)
}

func TestReadBandwidth_ErrorsWhenAnnotationMissing(t *testing.T) {
	cs := fake.NewSimpleClientset(fakeDeployment("ns", "bulk", ""))
	p := NewPatcher(cs)
	_, err := p.ReadBandwidth(context.Background(), "ns", "bulk")
	assert.Error(t, err)
}

func TestReadBandwidth_ErrorsWhenDeploymentMissing(t *testing.T) {
	cs := fake.NewSimpleClientset()
	p := NewPatcher(cs)
	_, err := p.ReadBandwidth(context.Background(), "ns", "missing")
	assert.Error(t, err)
}

func TestPatch_SetsAnnotation(t *testing.T) {
	cs := fake.NewSimpleClientset(fakeDeployment("ns", "bulk", "500M"))
	p := NewPatcher(cs)
	err := p.Patch(context.Background(), "ns", "bulk", 400)
	require.NoError(t, err)

	bw, err := p.ReadBandwidth(context.Background(), "ns", "bulk")
	require.NoError(t, err)
	assert.Equal(t, 400, bw)
}

func TestPatch_MissingDeploymentIsPermanent(t *testing.T) {
	cs := fake.NewSimpleClientset()
	p := NewPatcher(cs)
	err := p.Patch(context.Background(), "ns", "missing", 400)
	require.Error(t, err)
	var patchErr *PatchError
	require.ErrorAs(t, err, &patchErr)
	assert.True(t, patchErr.Permanent)
}

func TestPatchAll_RunsIndependently(t *testing.T) {
	cs := fake.NewSimpleClientset(
		fakeDeployment("ns", "a", "500M"),
		fakeDeployment("ns", "b", "500M"),
	)
	p := NewPatcher(cs)
	results := p.PatchAll(context.Background(), []PatchRequest{
		{Namespace: "ns", Deployment: "a", Mbps: 400},
		{Namespace: "ns", Deployment: "missing", Mbps: 400},
		{Namespace: "ns", Deployment: "b", Mbps: 300},
	})
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
}

func TestNewControlState_FallsBackToInitialOnUnreadable(t *testing.T) {
	cs := fake.NewSimpleClientset(fakeDeployment("ns", "a", "500M"))
	p := NewPatcher(cs)
	targets := []flowconfig.BestEffortTarget{
		{Namespace: "ns", Deployment: "a", InitialBandwidth: 123},
		{Namespace: "ns", Deployment: "missing", InitialBandwidth: 777},
	}
	states := NewControlState(context.Background(), p, targets)
	require.Len(t, states, 2)
	assert.Equal(t, 500, states[0].Bandwidth)
	assert.Equal(t, 777, states[1].Bandwidth)
}

func TestApplyResults_DropsPermanentlyFailedTargets(t *testing.T) {
	states := []*TargetState{
		{Namespace: "ns", Deployment: "a", Bandwidth: 500},
		{Namespace: "ns", Deployment: "b", Bandwidth: 500},
		{Namespace: "ns", Deployment: "c", Bandwidth: 500},
	}
	results := []PatchResult{
		{PatchRequest: PatchRequest{Namespace: "ns", Deployment: "a", Mbps: 400}, Err: nil},
		{PatchRequest: PatchRequest{Namespace: "ns", Deployment: "b", Mbps: 400}, Err: transientError("ns/b", assertErr)},
		{PatchRequest: PatchRequest{Namespace: "ns", Deployment: "c", Mbps: 400}, Err: permanentError("ns/c", assertErr)},
	}
	out := ApplyResults(states, results)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Deployment)
	assert.Equal(t, 400, out[0].Bandwidth)
	assert.Equal(t, "b", out[1].Deployment)
	assert.Equal(t, 500, out[1].Bandwidth) // unchanged on transient failure
}

var assertErr = context.DeadlineExceeded
