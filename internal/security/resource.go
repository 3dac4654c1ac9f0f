package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SignResource returns an HMAC-SHA256 over the colon-joined parts.
func SignResource(secret string, parts ...string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(parts, ":")))
	return []byte(base64.RawURLEncoding.EncodeToString(mac.Sum(nil)))
}

func VerifyResource(secret string, signature []byte, parts ...string) bool {
	return hmac.Equal(signature, SignResource(secret, parts...))
}

// Checksum is the sha256 of stored blob bytes.
func Checksum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
