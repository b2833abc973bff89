// Package config loads the service configuration from the environment.
//
// The service is configured entirely through environment variables; a .env
// file in the working directory is honored for local development. Defaults
// match a standard metal3 installation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for the webhook service.
type Config struct {
	// Kubernetes coordinates of the BareMetalHost resource.
	Namespace  string
	APIGroup   string
	APIVersion string
	Plural     string

	// WebhookSecret enables HMAC signature verification when non-empty.
	WebhookSecret string

	// HTTP server settings.
	ListenPort         int
	DisableHealthzLogs bool

	// ProvisioningTimeout bounds the completion monitor for one host.
	ProvisioningTimeout time.Duration

	// Outcome delivery endpoints. An empty endpoint disables the sink.
	NotificationEndpoint string
	NotificationTimeout  time.Duration
	WebhookLogEndpoint   string
	WebhookLogTimeout    time.Duration
}

// Load reads configuration from the environment, applying defaults and
// validating the result. A .env file is loaded first if present.
func Load() (*Config, error) {
	// A missing .env is not an error; it is a development convenience.
	_ = godotenv.Load()

	cfg := &Config{
		Namespace:            getEnv("K8S_NAMESPACE", "default"),
		APIGroup:             getEnv("BMH_API_GROUP", "metal3.io"),
		APIVersion:           getEnv("BMH_API_VERSION", "v1alpha1"),
		Plural:               getEnv("BMH_PLURAL", "baremetalhosts"),
		WebhookSecret:        os.Getenv("WEBHOOK_SECRET"),
		NotificationEndpoint: os.Getenv("NOTIFICATION_ENDPOINT"),
		WebhookLogEndpoint:   os.Getenv("WEBHOOK_LOG_ENDPOINT"),
	}

	var err error
	if cfg.ListenPort, err = getEnvInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.DisableHealthzLogs, err = getEnvBool("DISABLE_HEALTHZ_LOGS", true); err != nil {
		return nil, err
	}
	if cfg.ProvisioningTimeout, err = getEnvSeconds("PROVISIONING_TIMEOUT", 600); err != nil {
		return nil, err
	}
	if cfg.NotificationTimeout, err = getEnvSeconds("NOTIFICATION_TIMEOUT", 30); err != nil {
		return nil, err
	}
	if cfg.WebhookLogTimeout, err = getEnvSeconds("WEBHOOK_LOG_TIMEOUT", 30); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	if c.APIGroup == "" || c.APIVersion == "" || c.Plural == "" {
		return fmt.Errorf("incomplete resource coordinates: group=%q version=%q plural=%q",
			c.APIGroup, c.APIVersion, c.Plural)
	}
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("invalid port %d", c.ListenPort)
	}
	if c.ProvisioningTimeout <= 0 {
		return fmt.Errorf("provisioning timeout must be positive, got %s", c.ProvisioningTimeout)
	}
	return nil
}

// SignatureRequired reports whether inbound payloads must carry a valid
// signature header.
func (c *Config) SignatureRequired() bool {
	return c.WebhookSecret != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, v)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q", key, v)
	}
	return b, nil
}

func getEnvSeconds(key string, fallback int) (time.Duration, error) {
	n, err := getEnvInt(key, fallback)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}
