package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrSigningUnavailable is returned by GenerateToken when the service only
// holds a public key.
var ErrSigningUnavailable = errors.New("auth: no signing key configured")

// JWTConfig selects the keys and claims policy of a JWTService. Exactly one
// key source is used, in this order: PrivateKeyPEM, PublicKeyPEM, Secret.
type JWTConfig struct {
	// PrivateKeyPEM signs RS256 tokens; its public half validates them.
	PrivateKeyPEM string

	// PublicKeyPEM validates RS256 tokens minted elsewhere.
	PublicKeyPEM string

	// Secret switches to HS256 with a shared key. Used by tests.
	Secret string

	Issuer     string
	Expiration time.Duration

	// Leeway tolerates clock skew between issuer and validator.
	Leeway time.Duration
}

// JWTService mints and checks the bearer tokens carried by API callers.
type JWTService struct {
	config  JWTConfig
	method  jwt.SigningMethod
	signKey any
	verify  any
}

// NewJWTService picks the signing mode from the configured key material.
// A service built from PublicKeyPEM can only validate.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	svc := &JWTService{config: cfg}

	switch {
	case cfg.PrivateKeyPEM != "":
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("auth: parse signing key: %w", err)
		}
		svc.method = jwt.SigningMethodRS256
		svc.signKey = key
		svc.verify = &key.PublicKey

	case cfg.PublicKeyPEM != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("auth: parse verification key: %w", err)
		}
		svc.method = jwt.SigningMethodRS256
		svc.verify = key

	case cfg.Secret != "":
		svc.method = jwt.SigningMethodHS256
		svc.signKey = []byte(cfg.Secret)
		svc.verify = []byte(cfg.Secret)

	default:
		return nil, errors.New("auth: a private key, public key or shared secret is required")
	}

	return svc, nil
}

// GenerateToken mints a token for userID carrying roles. The subject and the
// user_id claim both hold the user id.
func (s *JWTService) GenerateToken(userID uuid.UUID, roles []string) (string, error) {
	if s.signKey == nil {
		return "", ErrSigningUnavailable
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.Expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		UserID: userID,
		Roles:  roles,
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
	if err != nil {
		return "", fmt.Errorf("auth: sign %s token: %w", s.method.Alg(), err)
	}
	return signed, nil
}

// ValidateToken verifies the signature, time claims and issuer, and requires
// a user id.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{s.method.Alg()})}
	if s.config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(s.config.Leeway))
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.verify, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return nil, fmt.Errorf("auth: invalid issuer %q", claims.Issuer)
	case err != nil:
		return nil, fmt.Errorf("auth: reject token: %w", err)
	case claims.UserID == uuid.Nil:
		return nil, errors.New("auth: token carries no user_id")
	}
	return claims, nil
}

// LoadKeyFromFile reads a PEM key file.
func LoadKeyFromFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("auth: read key file %q: %w", path, err)
	}
	return data, nil
}

// GenerateKeyPair creates a 2048-bit RSA key pair for development tokens.
// The private key is PKCS#1 PEM, the public key PKIX PEM.
func GenerateKeyPair() (privateKeyPEM, publicKeyPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: generate RSA key: %w", err)
	}

	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: encode public key: %w", err)
	}

	privateKeyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	publicKeyPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})
	return privateKeyPEM, publicKeyPEM, nil
}
