package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// Middleware resolves bearer credentials and gates routes by role.
type Middleware struct {
	Tokens *TokenIssuer
	Logger *slog.Logger
}

// Authenticate verifies the Authorization header and stores the principal in
// the request context. Missing or invalid tokens end the request with 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		principal, err := m.Tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			if m.Logger != nil {
				m.Logger.Debug("reject bearer token", slog.Any("error", err))
			}
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireRole ensures the principal holds one of the allowed roles. It runs
// after Authenticate, so the role check always precedes any state inspection
// performed by the handler.
func (m Middleware) RequireRole(allowed ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if !principal.Role.In(allowed...) {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
