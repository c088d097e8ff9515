// Package sha256 derives stable content hashes for stored comments.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Hasher computes hex SHA-256 digests.
type Hasher struct{}

// New returns a Hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the hex digest of data.
func (h *Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFields hashes an ordered list of fields. Each field is length-prefixed so that
// ("ab", "c") and ("a", "bc") never collide.
func (h *Hasher) HashFields(fields ...string) string {
	d := sha256.New()
	for _, f := range fields {
		d.Write([]byte(strconv.Itoa(len(f))))
		d.Write([]byte{':'})
		d.Write([]byte(f))
	}
	return hex.EncodeToString(d.Sum(nil))
}
