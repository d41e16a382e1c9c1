package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/greenbasket/internal/domain/auth"
)

type credentials struct {
	email    string
	password string
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	var c credentials
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "email":
			c.email, err = d.Str()
		case "password":
			c.password, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

// SignUp handles POST /api/auth/signup.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody.Error(), "")
		return
	}
	in, err := h.Auth.SignUp(r.Context(), c.email, c.password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	writeSignedIn(w, http.StatusCreated, in)
}

// SignIn handles POST /api/auth/signin.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody.Error(), "")
		return
	}
	in, err := h.Auth.SignIn(r.Context(), c.email, c.password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	writeSignedIn(w, http.StatusOK, in)
}

// SignOut handles POST /api/auth/signout. The session's cart is discarded by
// the auth state subscription.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.SignOut(r.Context(), bearerToken(r)); err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeSignedIn(w http.ResponseWriter, status int, in *auth.SignedIn) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			strField(e, "token", in.Token)
			e.Field("user", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					strField(e, "id", in.User.ID)
					strField(e, "email", in.User.Email)
				})
			})
		})
	})
}

// authStatus maps identity failures to HTTP status codes.
func authStatus(err error) int {
	var ve *auth.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	var ae *auth.Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case auth.KindEmailAlreadyInUse:
		return http.StatusConflict
	case auth.KindInvalidEmail, auth.KindWeakPassword:
		return http.StatusBadRequest
	case auth.KindUserNotFound, auth.KindWrongPassword, auth.KindInvalidCredential:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	status := authStatus(err)
	field, msg := auth.Describe(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Auth request failed", zap.Error(err))
	}
	writeError(w, status, msg, field)
}
