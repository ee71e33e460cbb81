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

// Package orchestrator is the client for the Flow Manager's one external
// collaborator named in spec §6: the container orchestrator's
// deployment-patching API. It reads and mutates the
// kubernetes.io/egress-bandwidth pod-template annotation via a typed
// client-go clientset and a JSON merge patch, the same mechanism
// pkg/operator/target_status.go uses to patch PodMonitoring status.
package orchestrator

import (
	"fmt"
	"os"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	"path/filepath"
)

// NewClientset builds a typed Kubernetes clientset. If kubeconfigPath is
// empty it first tries in-cluster configuration (the normal production
// path, running as a pod in the cluster it controls), falling back to
// ~/.kube/config for local development, mirroring
// cmd/operator/main.go's flag-driven client construction.
func NewClientset(kubeconfigPath string) (kubernetes.Interface, error) {
	cfg, err := loadConfig(kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("load kube config: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build clientset: %w", err)
	}
	return clientset, nil
}

func loadConfig(kubeconfigPath string) (*rest.Config, error) {
	if kubeconfigPath == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
		if home := homedir.HomeDir(); home != "" {
			kubeconfigPath = filepath.Join(home, ".kube", "config")
		}
	}
	if kubeconfigPath == "" {
		return nil, fmt.Errorf("no in-cluster config and no kubeconfig path available")
	}
	if _, err := os.Stat(kubeconfigPath); err != nil {
		return nil, fmt.Errorf("stat kubeconfig %q: %w", kubeconfigPath, err)
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfigPath)
}
