// Package baremetal wraps the Kubernetes API operations this service
// performs against BareMetalHost resources: writing the per-host user-data
// secret, patching the host spec for provisioning and deprovisioning, and
// observing the provisioning state.
package baremetal

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"metalhook/internal/config"
)

// Client wraps the typed and dynamic Kubernetes clients scoped to one
// namespace and one host resource type. It is safe for concurrent use.
type Client struct {
	Clientset kubernetes.Interface
	Dynamic   dynamic.Interface

	Namespace string
	GVR       schema.GroupVersionResource
}

// NewClient builds a client from the in-cluster configuration, falling back
// to the local kubeconfig when running outside a cluster.
func NewClient(cfg *config.Config) (*Client, error) {
	restCfg, err := rest.InClusterConfig()
	if err != nil {
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfigPath())
		if err != nil {
			return nil, fmt.Errorf("could not load any Kubernetes configuration: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	return NewWithClients(clientset, dynamicClient, cfg), nil
}

// NewWithClients wires a client from existing client instances. Used by
// NewClient and by tests with fakes.
func NewWithClients(clientset kubernetes.Interface, dyn dynamic.Interface, cfg *config.Config) *Client {
	return &Client{
		Clientset: clientset,
		Dynamic:   dyn,
		Namespace: cfg.Namespace,
		GVR: schema.GroupVersionResource{
			Group:    cfg.APIGroup,
			Version:  cfg.APIVersion,
			Resource: cfg.Plural,
		},
	}
}

func kubeconfigPath() string {
	if p := os.Getenv("KUBECONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kube", "config")
}
