package handler

import (
	"context"
	"net/http"

	"github.com/xenking/order-pipeline/internal/domain/auth"
)

// APIKeyHeader carries the raw API key.
const APIKeyHeader = "api_key"

// Authenticator resolves a raw API key, as *auth.Authenticator does.
type Authenticator interface {
	Authenticate(ctx context.Context, key string) (*auth.APIKeyInfo, error)
}

type apiKeyCtx struct{}

// KeyFromContext returns the key authenticated by APIKey, if any.
func KeyFromContext(ctx context.Context) (*auth.APIKeyInfo, bool) {
	info, ok := ctx.Value(apiKeyCtx{}).(*auth.APIKeyInfo)
	return info, ok
}

// APIKey rejects requests without a valid api_key header with 401.
func APIKey(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := authn.Authenticate(r.Context(), r.Header.Get(APIKeyHeader))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), apiKeyCtx{}, info)))
		})
	}
}

// RequireScope answers 403 unless the authenticated key holds scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, ok := KeyFromContext(r.Context())
			if !ok || !info.HasScope(scope) {
				writeError(w, http.StatusForbidden, "missing scope "+scope)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
