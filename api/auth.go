package api

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/finhub/accounts"
)

// =============================================================================
// AUTHENTICATION MIDDLEWARE
// =============================================================================

type userKey struct{}

// RequireAuth rejects requests without a live session token in the
// Authorization header and puts the user in the context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error: "Authentication required",
				Code:  string(accounts.CodeUnauthenticated),
			})
			return
		}
		u, err := h.App.Accounts.Authenticate(r.Context(), token)
		if err != nil {
			h.respondError(w, r, err, "Authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, u)))
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// CurrentUser returns the user RequireAuth stored in the context.
func CurrentUser(ctx context.Context) (accounts.User, bool) {
	u, ok := ctx.Value(userKey{}).(accounts.User)
	return u, ok
}

// actorID is the signed-in user's id, or "" outside RequireAuth.
func actorID(r *http.Request) string {
	u, _ := CurrentUser(r.Context())
	return u.ID
}

func authStatus(code accounts.Code) int {
	switch code {
	case accounts.CodeEmailInUse:
		return http.StatusConflict
	case accounts.CodeMaxUsers:
		return http.StatusForbidden
	case accounts.CodeInvalidCredential, accounts.CodeUnauthenticated:
		return http.StatusUnauthorized
	case accounts.CodeUserNotFound:
		return http.StatusNotFound
	case accounts.CodeTooManyRequests:
		return http.StatusTooManyRequests
	case accounts.CodeNetworkFailed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// authError answers with the sentence the given form shows for err.
func (h *Handler) authError(w http.ResponseWriter, r *http.Request, op accounts.Operation, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log(r).Error("auth failed", zap.String("op", string(op)), zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{
		Error: accounts.MessageFor(op, err),
		Code:  code,
	})
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// AuthConfig tells the login page whether sign-up is still open.
func (h *Handler) AuthConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.App.Accounts.Config(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Failed to load configuration")
		return
	}
	writeJSON(w, http.StatusOK, AuthConfigResponse{AppConfig: cfg, SignupOpen: cfg.SignupOpen()})
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, s, err := h.App.Accounts.Signup(r.Context(), req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		h.authError(w, r, accounts.OpSignup, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{User: u, Session: s})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, s, err := h.App.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.authError(w, r, accounts.OpLogin, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{User: u, Session: s})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		if err := h.App.Accounts.Logout(r.Context(), token); err != nil {
			h.respondError(w, r, err, "Logout failed")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestReset publishes a password reset request for the email.
func (h *Handler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.App.Accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.authError(w, r, accounts.OpReset, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Password reset email sent. Check your inbox.",
	})
}

// PasswordCheck reports the checklist for a password being typed.
func (h *Handler) PasswordCheck(w http.ResponseWriter, r *http.Request) {
	var req PasswordCheckRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp := PasswordCheckResponse{
		Requirements: accounts.PasswordChecklist(req.Password),
		Valid:        true,
	}
	if err := accounts.ValidatePassword(req.Password); err != nil {
		resp.Valid = false
		resp.Message = accounts.MessageFor(accounts.OpSignup, err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) GetTarget(w http.ResponseWriter, r *http.Request) {
	target, err := h.App.Accounts.TargetAmount(r.Context(), actorID(r))
	if err != nil {
		h.respondError(w, r, err, "Failed to load target")
		return
	}
	writeJSON(w, http.StatusOK, TargetResponse{TargetAmount: target})
}

// SetTarget stores the target amount; an empty value clears it.
func (h *Handler) SetTarget(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if !h.decode(w, r, &req) {
		return
	}
	target, err := h.App.Accounts.SetTargetAmount(r.Context(), actorID(r), req.Raw())
	if err != nil {
		h.respondError(w, r, err, "Failed to save target")
		return
	}
	writeJSON(w, http.StatusOK, TargetResponse{TargetAmount: target})
}
