package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the inbound payload signature.
const SignatureHeader = "X-Webhook-Signature"

// VerifySignature checks the hex HMAC-SHA256 signature of the raw body
// against the shared secret. An optional "sha256=" prefix on the header
// value is accepted. Comparison is constant-time.
func VerifySignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	signature = strings.TrimPrefix(signature, "sha256=")

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}
