package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metalhook/internal/event"
)

func TestResolve(t *testing.T) {
	intent := &event.Intent{
		Kind:        event.KindProvision,
		ImageURL:    "https://images.example.com/ubuntu-22.04.qcow2",
		ChecksumURL: "https://images.example.com/ubuntu-22.04.qcow2.sha256sum",
	}

	resolved, err := Resolve(intent)
	require.NoError(t, err)

	assert.Equal(t, intent.ImageURL, resolved.URL)
	assert.Equal(t, intent.ChecksumURL, resolved.Checksum)
	assert.Equal(t, "sha256", resolved.ChecksumType)
	assert.Equal(t, "qcow2", resolved.Format)
}

func TestResolveExplicitFormatWins(t *testing.T) {
	intent := &event.Intent{
		ImageURL:    "https://images.example.com/disk.img",
		ChecksumURL: "https://images.example.com/disk.img.sha256sum",
		ImageFormat: "qcow2",
	}

	resolved, err := Resolve(intent)
	require.NoError(t, err)
	assert.Equal(t, "qcow2", resolved.Format)
}

func TestResolveMissingURLs(t *testing.T) {
	tests := []struct {
		name   string
		intent *event.Intent
	}{
		{"missing image url", &event.Intent{ChecksumURL: "https://x/y.sha256sum"}},
		{"missing checksum url", &event.Intent{ImageURL: "https://x/y.qcow2"}},
		{"both missing", &event.Intent{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.intent)
			require.Error(t, err)

			var verr *event.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestFormatFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://images.example.com/x.qcow2", "qcow2"},
		{"https://images.example.com/x.QCOW2", "qcow2"},
		{"https://images.example.com/x.vmdk", "vmdk"},
		{"https://images.example.com/x.iso", "iso"},
		{"https://images.example.com/x.img", "raw"},
		{"https://images.example.com/x", "raw"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFromURL(tt.url), tt.url)
	}
}
