package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/greenbasket/internal/domain/auth"
)

type principalKey struct{}

// principalFrom returns the principal stored by authenticated.
func principalFrom(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalKey{}).(*auth.Principal)
	return p
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticated resolves the bearer token to a principal before calling
// next. Requests without a valid session get 401.
func (h *Handler) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required", "")
			return
		}
		p, err := h.Auth.Authenticate(r.Context(), token)
		if err != nil {
			if auth.IsKind(err, auth.KindInvalidCredential) {
				_, msg := auth.Describe(err)
				writeError(w, http.StatusUnauthorized, msg, "")
				return
			}
			zctx.From(r.Context()).Error("Authenticate failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, auth.GenericMessage, "")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, p)
		ctx = zctx.With(ctx, zap.String("user_id", p.User.ID))
		next(w, r.WithContext(ctx))
	}
}
