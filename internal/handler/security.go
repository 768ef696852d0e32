package handler

import (
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/Parzival048/ecomreact/internal/domain/auth"
	"github.com/Parzival048/ecomreact/pkg/httpmiddleware"
)

// APIKeyHeader carries the caller's API key. "Authorization: Bearer <key>"
// is accepted as well.
const APIKeyHeader = "api_key"

// SecurityHandler authenticates API requests via HMAC-SHA256 hashed API keys.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Require authenticates the request and checks that the key grants scope.
// The key is stored in the request context for auth.FromContext.
func (s *SecurityHandler) Require(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := s.authenticate(r)
			if err != nil {
				httpmiddleware.WriteError(w, http.StatusUnauthorized, auth.ErrUnauthorized.Error())
				return
			}
			if !info.Can(scope) {
				httpmiddleware.WriteError(w, http.StatusForbidden, auth.ErrForbidden.Error())
				return
			}
			ctx := auth.WithKey(r.Context(), info)
			ctx = zctx.With(ctx, zap.String("api_key_id", info.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *SecurityHandler) authenticate(r *http.Request) (*auth.APIKeyInfo, error) {
	key := r.Header.Get(APIKeyHeader)
	if key == "" {
		key, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if key == "" {
		return nil, auth.ErrUnauthorized
	}

	hexHash := auth.HashKey(s.pepper, key)
	info, err := s.apikeys.FindByHash(r.Context(), hexHash)
	if err != nil {
		if !errors.Is(err, auth.ErrKeyNotFound) {
			zctx.From(r.Context()).Error("API key lookup failed", zap.Error(err))
		}
		return nil, auth.ErrUnauthorized
	}

	// The stored hash is compared in constant time even though the lookup
	// matched on it.
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, auth.ErrUnauthorized
	}
	computed, _ := hex.DecodeString(hexHash)
	if subtle.ConstantTimeCompare(computed, stored) != 1 {
		return nil, auth.ErrUnauthorized
	}
	return info, nil
}

// caller returns the authenticated key. Routes without Require have none.
func caller(r *http.Request) (*auth.APIKeyInfo, error) {
	info, ok := auth.FromContext(r.Context())
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return info, nil
}
