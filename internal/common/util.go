package common

import (
	"crypto/rand"
	"encoding/base64"
)

// MakeRandTokenString returns a URL-safe random string built from size bytes
// of crypto/rand entropy. Used for opaque refresh tokens; the encoded string
// is what the client stores and replays verbatim.
func MakeRandTokenString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
