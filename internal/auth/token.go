package auth

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

const opaqueTokenBytes = 40

// NewOpaqueToken returns a cryptographically random hex string used for
// refresh tokens and internal session tokens.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewNumericCode returns a zero-padded 6-digit OTP code drawn uniformly
// from 000000-999999.
func NewNumericCode() (string, error) {
	// Rejection sampling keeps the distribution uniform.
	const limit = 1000000
	max := ^uint32(0) - ^uint32(0)%limit
	for {
		var buf [4]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return "", err
		}
		n := binary.BigEndian.Uint32(buf[:])
		if n < max {
			return fmt.Sprintf("%06d", n%limit), nil
		}
	}
}
