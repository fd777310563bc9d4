package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// TokenIDSize is the number of random bytes behind every token id.
const TokenIDSize = 32

// RandomSource supplies entropy for token ids. crypto/rand.Reader in
// production; tests inject deterministic readers.
type RandomSource = io.Reader

// DefaultRandom returns the process CSPRNG.
func DefaultRandom() RandomSource {
	return rand.Reader
}

// NewTokenID reads TokenIDSize bytes from r and returns them base64url
// encoded without padding.
func NewTokenID(r RandomSource) (string, error) {
	if r == nil {
		return "", errors.New("nil random source")
	}
	var raw [TokenIDSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return "", fmt.Errorf("read token id entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidTokenID reports whether id has the shape NewTokenID produces.
func ValidTokenID(id string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil && len(raw) == TokenIDSize
}
