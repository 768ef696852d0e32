package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// Scopes granted to API keys. Admin implies every other scope.
const (
	ScopeAdmin  = "admin"
	ScopeOrders = "orders"
)

var (
	// ErrUnauthorized is returned when a request carries no valid API key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a valid key lacks the required scope.
	ErrForbidden = errors.New("forbidden")
	// ErrKeyNotFound is returned by repositories for unknown or revoked keys.
	ErrKeyNotFound = errors.New("api key not found")
)

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	OwnerID string
	Scopes  []string
}

// Can reports whether the key grants scope.
func (i APIKeyInfo) Can(scope string) bool {
	return slices.Contains(i.Scopes, ScopeAdmin) || slices.Contains(i.Scopes, scope)
}

// IsAdmin reports whether the key carries the admin scope.
func (i APIKeyInfo) IsAdmin() bool {
	return slices.Contains(i.Scopes, ScopeAdmin)
}

// Repository provides lookup and registration of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
	Upsert(ctx context.Context, info *APIKeyInfo) error
}

// HashKey returns the hex HMAC-SHA256 of key under pepper.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

type keyCtx struct{}

// WithKey stores the authenticated key in ctx.
func WithKey(ctx context.Context, info *APIKeyInfo) context.Context {
	return context.WithValue(ctx, keyCtx{}, info)
}

// FromContext returns the authenticated key, if any.
func FromContext(ctx context.Context) (*APIKeyInfo, bool) {
	info, ok := ctx.Value(keyCtx{}).(*APIKeyInfo)
	return info, ok && info != nil
}
