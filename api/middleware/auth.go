package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Gulhayo05/Surprise-Bag/api/responses"
	pkgAuth "github.com/Gulhayo05/Surprise-Bag/pkg/auth"
	"github.com/Gulhayo05/Surprise-Bag/pkg/config"
	pkgerrors "github.com/Gulhayo05/Surprise-Bag/pkg/errors"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
)

var errMissingCredentials = pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")

// Auth validates a bearer token and seeds the request context with the
// caller's id and role.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, errMissingCredentials)
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(withActor(r, logg, claims.UserID.String(), string(claims.Role))))
		})
	}
}

func withActor(r *http.Request, logg *logger.Logger, userID, role string) context.Context {
	ctx := WithRole(WithUserID(r.Context(), userID), role)
	if logg == nil {
		return ctx
	}
	return logg.WithActorRole(logg.WithUserID(ctx, userID), role)
}

// bearerToken strips an optional case-insensitive "Bearer" scheme.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if strings.EqualFold(header, "bearer") {
		return ""
	}
	scheme, rest, found := strings.Cut(header, " ")
	if found && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}
