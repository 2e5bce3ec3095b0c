package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignHMAC returns the X-Signature header value for a notification delivery:
// lowercase hex HMAC-SHA256 over the raw payload under the merchant's secret.
func SignHMAC(secret string, payload []byte) string {
	return hex.EncodeToString(digest(secret, payload))
}

// VerifyHMAC is the receiver-side counterpart: merchant endpoints recompute
// the digest over the body they received and compare in constant time.
func VerifyHMAC(secret string, payload []byte, provided string) bool {
	b, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	return hmac.Equal(digest(secret, payload), b)
}

func digest(secret string, payload []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}
