package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cloo-solutions/plancheck/internal/domain"
)

const apiKeyPrefix = "pck_"

// KeyAuthenticator validates bearer tokens against a fixed set of named API
// keys. Only token hashes are kept in memory.
type KeyAuthenticator struct {
	names  []string
	hashes [][]byte
}

// NewKeyAuthenticator parses "name:token" entries. An entry without a name
// is called "default".
func NewKeyAuthenticator(entries []string) (*KeyAuthenticator, error) {
	a := &KeyAuthenticator{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		name, token := "default", e
		if i := strings.LastIndex(e, ":"); i >= 0 {
			name, token = strings.TrimSpace(e[:i]), strings.TrimSpace(e[i+1:])
		}
		if name == "" {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
		}
		if !IsValidAPIToken(token) {
			return nil, domain.NewDomainError(domain.ErrCodeValidation,
				fmt.Sprintf("invalid API key %q (expected %s<64 hex chars>)", name, apiKeyPrefix))
		}
		h := sha256.Sum256([]byte(token))
		a.names = append(a.names, name)
		a.hashes = append(a.hashes, h[:])
	}
	return a, nil
}

// Enabled reports whether any key is configured.
func (a *KeyAuthenticator) Enabled() bool {
	return len(a.hashes) > 0
}

// ValidateAPIKey returns the name of the key matching token.
func (a *KeyAuthenticator) ValidateAPIKey(_ context.Context, token string) (string, error) {
	if !IsValidAPIToken(token) {
		return "", domain.ErrInvalidAPIKey
	}
	h := sha256.Sum256([]byte(token))
	name := ""
	for i, known := range a.hashes {
		if subtle.ConstantTimeCompare(h[:], known) == 1 && name == "" {
			name = a.names[i]
		}
	}
	if name == "" {
		return "", domain.ErrInvalidAPIKey
	}
	return name, nil
}

// GenerateAPIToken returns a new random token.
func GenerateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(bytes), nil
}

func IsValidAPIToken(token string) bool {
	if !strings.HasPrefix(token, apiKeyPrefix) {
		return false
	}
	hexPart := token[len(apiKeyPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
