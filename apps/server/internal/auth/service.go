package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const tokenBytes = 32

var (
	ErrUnauthorized = errors.New("invalid admin token")
	ErrDisabled     = errors.New("admin endpoints disabled")
)

// Service guards the admin-only endpoints with a single shared bearer token.
type Service interface {
	Authorize(token string) error
	Mode() string
}

// NewService prefers a bcrypt hash; a plain token is hashed at startup.
// With neither, every Authorize call fails with ErrDisabled.
func NewService(tokenHash, token string) (Service, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	token = strings.TrimSpace(token)
	switch {
	case tokenHash != "":
		if _, err := bcrypt.Cost([]byte(tokenHash)); err != nil {
			return nil, err
		}
		return &hashAuthorizer{hash: []byte(tokenHash), mode: "hash"}, nil
	case token != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		return &hashAuthorizer{hash: hash, mode: "token"}, nil
	default:
		return disabledAuthorizer{}, nil
	}
}

// HashToken returns the bcrypt hash to place in ADMIN_TOKEN_HASH.
func HashToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthorized
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateToken returns a fresh random admin token.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type hashAuthorizer struct {
	hash []byte
	mode string
}

func (a *hashAuthorizer) Authorize(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword(a.hash, []byte(token)) != nil {
		return ErrUnauthorized
	}
	return nil
}

func (a *hashAuthorizer) Mode() string { return a.mode }

type disabledAuthorizer struct{}

func (disabledAuthorizer) Authorize(string) error { return ErrDisabled }
func (disabledAuthorizer) Mode() string           { return "disabled" }
