package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const minRSABits = 2048

// DecodePrivateKey parses a base64-encoded PEM RSA private key (PKCS#1 or PKCS#8).
func DecodePrivateKey(b64 string) (*rsa.PrivateKey, error) {
	raw, err := decodeBase64PEM(b64)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	if key.N.BitLen() < minRSABits {
		return nil, fmt.Errorf("private key: %d bits, need at least %d", key.N.BitLen(), minRSABits)
	}
	return key, nil
}

// DecodePublicKey parses a base64-encoded PEM RSA public key.
func DecodePublicKey(b64 string) (*rsa.PublicKey, error) {
	raw, err := decodeBase64PEM(b64)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	return key, nil
}

// GenerateKeyPair returns a fresh RSA key pair as base64-encoded PEM strings,
// in the shape expected by JWT_PRIVATE_KEY and JWT_PUBLIC_KEY.
func GenerateKeyPair(bits int) (privateB64, publicB64 string, err error) {
	if bits < minRSABits {
		bits = minRSABits
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return "", "", fmt.Errorf("generate rsa key: %w", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("marshal public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	return base64.StdEncoding.EncodeToString(privPEM), base64.StdEncoding.EncodeToString(pubPEM), nil
}

func decodeBase64PEM(b64 string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return raw, nil
}
