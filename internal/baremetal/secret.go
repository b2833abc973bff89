package baremetal

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// UserDataSecretName returns the name of the per-host user-data secret.
func UserDataSecretName(hostName string) string {
	return hostName + "-userdata"
}

// EnsureUserDataSecret creates or overwrites the user-data secret for a
// host. The content is fully derived from the current intent, so an
// overwrite is always safe; a create conflict is satisfied via update, not
// treated as a failure.
func (c *Client) EnsureUserDataSecret(ctx context.Context, hostName, cloudConfig string) error {
	name := UserDataSecretName(hostName)
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: c.Namespace,
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			"userData": []byte(cloudConfig),
		},
	}

	_, err := c.Clientset.CoreV1().Secrets(c.Namespace).Create(ctx, secret, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		_, err = c.Clientset.CoreV1().Secrets(c.Namespace).Update(ctx, secret, metav1.UpdateOptions{})
	}
	if err != nil {
		return &DependencyError{Op: "write secret", Resource: name, Err: err}
	}
	return nil
}
