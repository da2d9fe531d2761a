// Package password hashes account secrets (passwords and security answers).
//
// bcrypt only looks at the first 72 bytes of its input. To accept secrets of
// any length without two long secrets sharing a prefix verifying as equal,
// every secret is first reduced to its hex SHA-256 digest (64 bytes) and that
// digest is what bcrypt hashes.
package password

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/starford/mindmaps/internal/checksum"
)

// Hasher produces and checks salted bcrypt hashes of pre-digested secrets.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// New returns a Hasher using the given bcrypt cost. Out-of-range costs fall
// back to bcrypt.DefaultCost.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the storable hash of secret.
func (h *Hasher) Hash(secret string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(checksum.SumString(secret)), h.cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(out), nil
}

// Verify reports whether secret matches hash. A malformed hash never matches.
func (h *Hasher) Verify(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(checksum.SumString(secret))) == nil
}

// VerifyAbsent spends the same work as a failed Verify. Callers use it when
// there is no stored hash to compare against, so a missing account and a wrong
// secret take comparable time.
func (h *Hasher) VerifyAbsent(secret string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte(checksum.SumString("mindmaps-absent-account")), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(checksum.SumString(secret)))
}

// NormalizeAnswer lower-cases and trims a security answer so comparisons
// ignore case and surrounding whitespace.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
