package token

import (
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm names the signature scheme written into the token header.
type Algorithm string

const (
	// AlgHS256 is HMAC-SHA256 over a shared secret.
	AlgHS256 Algorithm = "HS256"
	// AlgRS256 is RSASSA-PKCS1-v1_5 with SHA-256.
	AlgRS256 Algorithm = "RS256"
	// AlgEdDSA is Ed25519.
	AlgEdDSA Algorithm = "EdDSA"
)

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgHS256, AlgRS256, AlgEdDSA:
		return true
	default:
		return false
	}
}

// Signer produces a signature over the signing input. Deterministic signers
// (HMAC) are verified by re-signing and comparing.
type Signer interface {
	Sign(data []byte) ([]byte, error)
}

// Verifier is implemented by signers whose signatures cannot be reproduced
// by re-signing (asymmetric schemes). Verify returns nil for a valid signature.
type Verifier interface {
	Verify(data, sig []byte) error
}

// AlgorithmSigner is implemented by signers that are bound to one algorithm.
// The codec refuses to pair such a signer with a different algorithm.
type AlgorithmSigner interface {
	Algorithm() Algorithm
}

var errEmptyKey = errors.New("token: empty signing key")

type hmacSigner struct {
	secret []byte
}

// NewHMACSigner returns an HS256 signer over secret. The secret is copied.
func NewHMACSigner(secret []byte) (Signer, error) {
	if len(secret) == 0 {
		return nil, errEmptyKey
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &hmacSigner{secret: key}, nil
}

func (s *hmacSigner) Sign(data []byte) ([]byte, error) {
	return jwt.SigningMethodHS256.Sign(string(data), s.secret)
}

func (s *hmacSigner) Algorithm() Algorithm { return AlgHS256 }

type asymmetricSigner struct {
	alg       Algorithm
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
}

func (s *asymmetricSigner) Sign(data []byte) ([]byte, error) {
	if s.signKey == nil {
		return nil, fmt.Errorf("token: %s signer has no private key", s.alg)
	}
	return s.method.Sign(string(data), s.signKey)
}

func (s *asymmetricSigner) Verify(data, sig []byte) error {
	return s.method.Verify(string(data), sig, s.verifyKey)
}

func (s *asymmetricSigner) Algorithm() Algorithm { return s.alg }

// NewRSASigner returns an RS256 signer. key may be nil for verify-only use, in
// which case pub must be set.
func NewRSASigner(key *rsa.PrivateKey, pub *rsa.PublicKey) (Signer, error) {
	if key == nil && pub == nil {
		return nil, errEmptyKey
	}
	if pub == nil {
		pub = &key.PublicKey
	}
	s := &asymmetricSigner{
		alg:       AlgRS256,
		method:    jwt.SigningMethodRS256,
		verifyKey: pub,
	}
	if key != nil {
		s.signKey = key
	}
	return s, nil
}

// NewRSASignerFromPEM parses a PEM-encoded RSA private key.
func NewRSASignerFromPEM(pemKey []byte) (Signer, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("token: parse rsa key: %w", err)
	}
	return NewRSASigner(key, nil)
}

// NewEd25519Signer returns an EdDSA signer. key may be nil for verify-only use.
func NewEd25519Signer(key ed25519.PrivateKey, pub ed25519.PublicKey) (Signer, error) {
	if len(key) == 0 && len(pub) == 0 {
		return nil, errEmptyKey
	}
	if len(key) != 0 && len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("token: invalid ed25519 private key size")
	}
	if len(pub) == 0 {
		pub = key.Public().(ed25519.PublicKey)
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, errors.New("token: invalid ed25519 public key size")
	}
	s := &asymmetricSigner{
		alg:       AlgEdDSA,
		method:    jwt.SigningMethodEdDSA,
		verifyKey: pub,
	}
	if len(key) != 0 {
		s.signKey = key
	}
	return s, nil
}

// NewEd25519SignerFromPEM parses a PKCS8 PEM-encoded Ed25519 private key.
func NewEd25519SignerFromPEM(pemKey []byte) (Signer, error) {
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("token: parse ed25519 key: %w", err)
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("token: invalid ed25519 private key type")
	}
	return NewEd25519Signer(key, nil)
}
