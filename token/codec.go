package token

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed is returned when a token is not three segments or its
	// authenticated content cannot be decoded.
	ErrMalformed = errors.New("malformed token")
	// ErrInvalidSignature is returned when the signature does not match the
	// signing input, or the header names a different algorithm.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrSigner is returned when the injected signer fails.
	ErrSigner = errors.New("token signer failure")
)

const headerType = "JWT"

// Codec turns claim sets into signed token strings and back.
//
// A Codec is immutable after construction and safe for concurrent use when
// its Signer is.
type Codec struct {
	alg    Algorithm
	method *signerMethod
	parser *jwt.Parser
}

// NewCodec binds alg to signer.
func NewCodec(alg Algorithm, signer Signer) (*Codec, error) {
	if !alg.Valid() {
		return nil, fmt.Errorf("token: unsupported algorithm %q", alg)
	}
	if signer == nil {
		return nil, errors.New("token: signer required")
	}
	if bound, ok := signer.(AlgorithmSigner); ok && bound.Algorithm() != alg {
		return nil, fmt.Errorf("token: signer algorithm %s does not match %s", bound.Algorithm(), alg)
	}
	return &Codec{
		alg:    alg,
		method: &signerMethod{alg: alg, signer: signer},
		parser: jwt.NewParser(jwt.WithPaddingAllowed()),
	}, nil
}

// Algorithm returns the header algorithm this codec writes and accepts.
func (c *Codec) Algorithm() Algorithm {
	return c.alg
}

// Encode signs claims and returns the compact token string.
func (c *Codec) Encode(claims ClaimSet) (string, error) {
	t := jwt.NewWithClaims(c.method, claims)
	t.Header["typ"] = headerType
	out, err := t.SignedString(nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigner, err)
	}
	return out, nil
}

// DecodeAndVerify checks the signature of tokenStr and returns its claims.
func (c *Codec) DecodeAndVerify(tokenStr string) (ClaimSet, error) {
	var claims ClaimSet

	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return claims, ErrMalformed
	}

	sig, err := c.parser.DecodeSegment(parts[2])
	if err != nil {
		return claims, ErrMalformed
	}

	signingInput := tokenStr[:len(parts[0])+1+len(parts[1])]
	if err := c.method.Verify(signingInput, sig, nil); err != nil {
		if errors.Is(err, ErrSigner) {
			return claims, err
		}
		return claims, ErrInvalidSignature
	}

	headerRaw, err := c.parser.DecodeSegment(parts[0])
	if err != nil {
		return claims, ErrMalformed
	}
	var header struct {
		Alg string `json:"alg"`
		Typ string `json:"typ"`
	}
	if err := json.Unmarshal(headerRaw, &header); err != nil {
		return claims, ErrMalformed
	}
	if header.Alg != string(c.alg) {
		return claims, ErrInvalidSignature
	}
	if header.Typ != "" && header.Typ != headerType {
		return claims, ErrMalformed
	}

	claimsRaw, err := c.parser.DecodeSegment(parts[1])
	if err != nil {
		return claims, ErrMalformed
	}
	if err := json.Unmarshal(claimsRaw, &claims); err != nil {
		return ClaimSet{}, ErrMalformed
	}
	if claims.TokenID == "" || claims.Subject == "" {
		return ClaimSet{}, ErrMalformed
	}

	return claims, nil
}

// signerMethod adapts a Signer to jwt.SigningMethod. The key arguments are
// ignored; key material lives inside the Signer.
type signerMethod struct {
	alg    Algorithm
	signer Signer
}

func (m *signerMethod) Alg() string {
	return string(m.alg)
}

func (m *signerMethod) Sign(signingString string, _ interface{}) ([]byte, error) {
	sig, err := m.signer.Sign([]byte(signingString))
	if err != nil {
		return nil, err
	}
	if len(sig) == 0 {
		return nil, errors.New("empty signature")
	}
	return sig, nil
}

func (m *signerMethod) Verify(signingString string, sig []byte, _ interface{}) error {
	if v, ok := m.signer.(Verifier); ok {
		if err := v.Verify([]byte(signingString), sig); err != nil {
			return jwt.ErrSignatureInvalid
		}
		return nil
	}

	expected, err := m.signer.Sign([]byte(signingString))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSigner, err)
	}
	if len(expected) == 0 || subtle.ConstantTimeCompare(expected, sig) != 1 {
		return jwt.ErrSignatureInvalid
	}
	return nil
}
