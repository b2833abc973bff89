package baremetal

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/watch"

	"metalhook/internal/image"
)

// Provision writes the user-data secret for the host and then submits the
// provision patch. The secret write strictly precedes the patch: if it
// fails, the patch is never submitted and the host is not told to reference
// a secret that does not exist.
func (c *Client) Provision(ctx context.Context, hostName string, img *image.Resolved, cloudConfig string) error {
	if err := c.EnsureUserDataSecret(ctx, hostName, cloudConfig); err != nil {
		return err
	}

	return c.applyPatch(ctx, hostName, ProvisionPatch{
		ImageURL:        img.URL,
		Checksum:        img.Checksum,
		ChecksumType:    img.ChecksumType,
		ImageFormat:     img.Format,
		SecretName:      UserDataSecretName(hostName),
		SecretNamespace: c.Namespace,
	})
}

// Deprovision clears the host's image and user-data reference. The secret is
// left in place; host lifecycle tooling owns its cleanup.
func (c *Client) Deprovision(ctx context.Context, hostName string) error {
	return c.applyPatch(ctx, hostName, DeprovisionPatch{})
}

func (c *Client) applyPatch(ctx context.Context, hostName string, patch Patch) error {
	data, err := patch.Data()
	if err != nil {
		return &DependencyError{Op: patch.Operation(), Resource: hostName, Err: err}
	}

	_, err = c.Dynamic.Resource(c.GVR).Namespace(c.Namespace).
		Patch(ctx, hostName, types.MergePatchType, data, metav1.PatchOptions{})
	if err != nil {
		return &DependencyError{Op: patch.Operation(), Resource: hostName, Err: err}
	}
	return nil
}

// ProvisioningState reads the host's current status.provisioning.state. A
// host without the field yet reports an empty state.
func (c *Client) ProvisioningState(ctx context.Context, hostName string) (State, error) {
	obj, err := c.Dynamic.Resource(c.GVR).Namespace(c.Namespace).Get(ctx, hostName, metav1.GetOptions{})
	if err != nil {
		return "", &DependencyError{Op: "get", Resource: hostName, Err: err}
	}
	return StateOf(obj), nil
}

// StateOf extracts the provisioning state from a host object.
func StateOf(obj *unstructured.Unstructured) State {
	state, _, _ := unstructured.NestedString(obj.Object, "status", "provisioning", "state")
	return State(state)
}

// WatchHost opens a watch scoped to the single named host, bounded
// server-side by timeoutSeconds. The caller owns the returned watch and
// must stop it on every exit path.
func (c *Client) WatchHost(ctx context.Context, hostName string, timeoutSeconds int64) (watch.Interface, error) {
	w, err := c.Dynamic.Resource(c.GVR).Namespace(c.Namespace).Watch(ctx, metav1.ListOptions{
		FieldSelector:  "metadata.name=" + hostName,
		TimeoutSeconds: &timeoutSeconds,
	})
	if err != nil {
		return nil, &DependencyError{Op: "watch", Resource: hostName, Err: err}
	}
	return w, nil
}
