// Package identity validates account identities and derives deterministic
// pool and receipt-token identifiers.
package identity

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateAccount checks that an account identity is a base58-encoded
// 32-byte ed25519 public key on the curve.
func ValidateAccount(account string) error {
	if account == "" {
		return fmt.Errorf("empty account identity")
	}

	raw, err := base58.Decode(account)
	if err != nil {
		return fmt.Errorf("decode account identity: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("account identity must be 32 bytes, got %d", len(raw))
	}
	if !isOnCurve(raw) {
		return fmt.Errorf("account identity is not a valid ed25519 point")
	}
	return nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// DerivePoolID computes a deterministic pool identifier.
// Formula: base58(SHA256("pool|" + creator + "|" + sequence))
func DerivePoolID(creator string, sequence uint64) string {
	return derive("pool", creator, sequence)
}

// DeriveReceiptTokenID computes a deterministic receipt-token identifier
// for a pool.
// Formula: base58(SHA256("cslp|" + creator + "|" + sequence))
func DeriveReceiptTokenID(creator string, sequence uint64) string {
	return derive("cslp", creator, sequence)
}

func derive(tag, creator string, sequence uint64) string {
	data := fmt.Sprintf("%s|%s|%d", tag, creator, sequence)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
