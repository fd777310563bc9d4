package token_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/MrEthical07/tokenguard/token"
	"github.com/stretchr/testify/require"
)

func TestHMACSignerRoundTrip(t *testing.T) {
	s, err := token.NewHMACSigner([]byte("an-hmac-secret-of-reasonable-size"))
	require.NoError(t, err)

	c, err := token.NewCodec(token.AlgHS256, s)
	require.NoError(t, err)

	tok, err := c.Encode(sampleClaims())
	require.NoError(t, err)
	got, err := c.DecodeAndVerify(tok)
	require.NoError(t, err)
	require.Equal(t, "u1", got.Subject)
}

func TestHMACSignerRejectsEmptySecret(t *testing.T) {
	_, err := token.NewHMACSigner(nil)
	require.Error(t, err)
}

func TestEd25519SignerRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	s, err := token.NewEd25519Signer(priv, pub)
	require.NoError(t, err)
	c, err := token.NewCodec(token.AlgEdDSA, s)
	require.NoError(t, err)

	tok, err := c.Encode(sampleClaims())
	require.NoError(t, err)

	verifyOnly, err := token.NewEd25519Signer(nil, pub)
	require.NoError(t, err)
	vc, err := token.NewCodec(token.AlgEdDSA, verifyOnly)
	require.NoError(t, err)

	got, err := vc.DecodeAndVerify(tok)
	require.NoError(t, err)
	require.Equal(t, sampleClaims(), got)
}

func TestEd25519SignerRejectsOtherKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	s, err := token.NewEd25519Signer(priv, nil)
	require.NoError(t, err)
	c, err := token.NewCodec(token.AlgEdDSA, s)
	require.NoError(t, err)
	tok, err := c.Encode(sampleClaims())
	require.NoError(t, err)

	wrong, err := token.NewEd25519Signer(nil, otherPub)
	require.NoError(t, err)
	wc, err := token.NewCodec(token.AlgEdDSA, wrong)
	require.NoError(t, err)

	_, err = wc.DecodeAndVerify(tok)
	require.ErrorIs(t, err, token.ErrInvalidSignature)
}

func TestEd25519SignerFromPEM(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	block := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	s, err := token.NewEd25519SignerFromPEM(block)
	require.NoError(t, err)
	_, err = token.NewCodec(token.AlgEdDSA, s)
	require.NoError(t, err)

	_, err = token.NewEd25519SignerFromPEM([]byte("not pem"))
	require.Error(t, err)
}

func TestRSASignerRoundTripFromPEM(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	block := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	s, err := token.NewRSASignerFromPEM(block)
	require.NoError(t, err)
	c, err := token.NewCodec(token.AlgRS256, s)
	require.NoError(t, err)

	tok, err := c.Encode(sampleClaims())
	require.NoError(t, err)
	got, err := c.DecodeAndVerify(tok)
	require.NoError(t, err)
	require.Equal(t, "tid-access-1", got.TokenID)

	verifyOnly, err := token.NewRSASigner(nil, &key.PublicKey)
	require.NoError(t, err)
	_, err = verifyOnly.Sign([]byte("x"))
	require.Error(t, err)
}
