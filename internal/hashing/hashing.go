package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrNoPepper means the hasher was constructed without a pepper. The pepper is
// a mandatory server-held secret; running without it is a configuration
// defect, not a per-request condition.
var ErrNoPepper = errors.New("hashing: pepper is not configured")

// Hasher produces one-way hex digests of strings salted with a secret pepper.
// The same function serves two domains that never compare to each other:
// visitor IPs (uid column) and canonical payload strings (data_hash column).
type Hasher struct {
	pepper string
}

// New returns a Hasher, or ErrNoPepper if pepper is empty.
func New(pepper string) (*Hasher, error) {
	if pepper == "" {
		return nil, ErrNoPepper
	}
	return &Hasher{pepper: pepper}, nil
}

// Sum returns the lowercase hex SHA-256 digest of input concatenated with the
// pepper. Deterministic: equal inputs always yield equal digests.
func (h *Hasher) Sum(input string) string {
	d := sha256.Sum256([]byte(input + h.pepper))
	return hex.EncodeToString(d[:])
}
