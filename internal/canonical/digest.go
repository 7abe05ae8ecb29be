package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digests. The version suffix allows the algorithm to
// change without colliding with stored values.
const (
	DomainSession    = "basket/session/v1"
	DomainSubmission = "basket/submission/v1"
)

// Digest computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null separator keeps the domain/data boundary unambiguous.
func Digest(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DigestValue canonically marshals v and digests it under domain.
func DigestValue(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return Digest(domain, data), nil
}

// SessionKey derives the local storage key for a bearer token.
// The raw token never reaches disk.
func SessionKey(token string) string {
	return Digest(DomainSession, []byte(token))
}
