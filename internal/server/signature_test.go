package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"eventType":"EVENT_START"}`)
	secret := "s3cret"

	assert.True(t, VerifySignature(secret, body, sign(secret, body)))
	assert.True(t, VerifySignature(secret, body, "sha256="+sign(secret, body)))
}

func TestVerifySignatureRejects(t *testing.T) {
	body := []byte(`{"eventType":"EVENT_START"}`)

	assert.False(t, VerifySignature("s3cret", body, ""))
	assert.False(t, VerifySignature("s3cret", body, "not-hex"))
	assert.False(t, VerifySignature("s3cret", body, sign("wrong-secret", body)))
	assert.False(t, VerifySignature("s3cret", []byte("tampered"), sign("s3cret", body)))
}
