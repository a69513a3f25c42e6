package middleware

import (
	"net/http"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/auth"
	"github.com/frahmantamala/dot-spend/internal/transport"
	"github.com/frahmantamala/dot-spend/pkg/logger"
)

// Authenticate rejects requests without a valid bearer token and puts the token subject on
// the request context.
func Authenticate(base *transport.BaseHandler, issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := transport.BearerToken(r)
			if token == "" {
				base.WriteError(w, http.StatusUnauthorized, "missing authorization token")
				return
			}

			claims, err := issuer.Validate(token)
			if err != nil {
				base.HandleServiceError(w, err)
				return
			}

			ctx := internal.ContextWithSubject(r.Context(), claims.Subject)
			ctx = logger.With(ctx, "subject", claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
