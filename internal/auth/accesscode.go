package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"
)

// AccessCode guards the chat UI behind a shared code. The zero value
// accepts every request.
type AccessCode struct {
	hash []byte
}

// NewAccessCode creates a gate for code; an empty code disables the gate
func NewAccessCode(code string) AccessCode {
	code = strings.TrimSpace(code)
	if code == "" {
		return AccessCode{}
	}
	sum := sha256.Sum256([]byte(code))
	return AccessCode{hash: sum[:]}
}

// Enabled reports whether a code is required
func (a AccessCode) Enabled() bool {
	return len(a.hash) > 0
}

// Verify compares candidate against the configured code in constant time
func (a AccessCode) Verify(candidate string) bool {
	if !a.Enabled() {
		return true
	}
	sum := sha256.Sum256([]byte(strings.TrimSpace(candidate)))
	return subtle.ConstantTimeCompare(a.hash, sum[:]) == 1
}
