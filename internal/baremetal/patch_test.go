package baremetal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionPatchData(t *testing.T) {
	patch := ProvisionPatch{
		ImageURL:        "https://images.example.com/x.qcow2",
		Checksum:        "https://images.example.com/x.qcow2.sha256sum",
		ChecksumType:    "sha256",
		ImageFormat:     "qcow2",
		SecretName:      "server-01-userdata",
		SecretNamespace: "default",
	}

	data, err := patch.Data()
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))

	spec := body["spec"].(map[string]any)
	img := spec["image"].(map[string]any)
	assert.Equal(t, patch.ImageURL, img["url"])
	assert.Equal(t, patch.Checksum, img["checksum"])
	assert.Equal(t, "sha256", img["checksumType"])
	assert.Equal(t, "qcow2", img["format"])

	userData := spec["userData"].(map[string]any)
	assert.Equal(t, "server-01-userdata", userData["name"])
	assert.Equal(t, "default", userData["namespace"])

	assert.Equal(t, "provision", patch.Operation())
}

func TestDeprovisionPatchData(t *testing.T) {
	data, err := DeprovisionPatch{}.Data()
	require.NoError(t, err)
	assert.JSONEq(t, `{"spec":{"image":null,"userData":null}}`, string(data))
	assert.Equal(t, "deprovision", DeprovisionPatch{}.Operation())
}

func TestStatePredicates(t *testing.T) {
	assert.True(t, StateProvisioned.Succeeded())
	assert.True(t, StateProvisioned.Terminal())
	assert.True(t, StateError.Failed())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateProvisioning.Terminal())
	assert.False(t, StateDeprovisioning.Terminal())
	assert.False(t, State("").Terminal())
}
