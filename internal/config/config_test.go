package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Namespace)
	assert.Equal(t, "metal3.io", cfg.APIGroup)
	assert.Equal(t, "v1alpha1", cfg.APIVersion)
	assert.Equal(t, "baremetalhosts", cfg.Plural)
	assert.Equal(t, 8080, cfg.ListenPort)
	assert.Equal(t, 10*time.Minute, cfg.ProvisioningTimeout)
	assert.Equal(t, 30*time.Second, cfg.NotificationTimeout)
	assert.True(t, cfg.DisableHealthzLogs)
	assert.False(t, cfg.SignatureRequired())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("K8S_NAMESPACE", "baremetal")
	t.Setenv("PROVISIONING_TIMEOUT", "120")
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("DISABLE_HEALTHZ_LOGS", "false")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "baremetal", cfg.Namespace)
	assert.Equal(t, 2*time.Minute, cfg.ProvisioningTimeout)
	assert.Equal(t, 9090, cfg.ListenPort)
	assert.False(t, cfg.DisableHealthzLogs)
	assert.True(t, cfg.SignatureRequired())
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty namespace", func(c *Config) { c.Namespace = "" }, true},
		{"missing group", func(c *Config) { c.APIGroup = "" }, true},
		{"port out of range", func(c *Config) { c.ListenPort = 70000 }, true},
		{"zero timeout", func(c *Config) { c.ProvisioningTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Namespace:           "default",
				APIGroup:            "metal3.io",
				APIVersion:          "v1alpha1",
				Plural:              "baremetalhosts",
				ListenPort:          8080,
				ProvisioningTimeout: time.Minute,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
