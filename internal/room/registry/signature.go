package registry

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// BuildHash returns the base64 SHA-256 of the request body, the value of the
// gameon-sig-body header.
func BuildHash(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// BuildHmac signs the concatenated parts with the owner's key, the value of
// the gameon-signature header.
func BuildHmac(key string, parts ...string) string {
	mac := hmac.New(sha256.New, []byte(key))
	for _, p := range parts {
		mac.Write([]byte(p))
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
