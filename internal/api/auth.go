package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/sinalizacao/internal/auth"
	"github.com/erazemk/sinalizacao/internal/model"
	"github.com/erazemk/sinalizacao/internal/session"
	"github.com/erazemk/sinalizacao/internal/store"
)

// AuthHandler handles login, logout and own-account endpoints.
type AuthHandler struct {
	*Deps
}

type loginRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token          string          `json:"token"`
	User           profile         `json:"user"`
	PreviousAccess *session.Access `json:"previous_access"`
}

type forgotRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type changePasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"required,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// profile is a user as seen by clients: capabilities are the effective ones.
type profile struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Role           string            `json:"role"`
	IsAdmin        bool              `json:"is_admin"`
	Permissions    model.Permissions `json:"permissions"`
	ResetRequested bool              `json:"reset_requested"`
}

func newProfile(u model.User) profile {
	return profile{
		ID:             u.ID,
		Name:           u.Name,
		Role:           u.Role,
		IsAdmin:        u.IsAdmin,
		Permissions:    u.Effective(),
		ResetRequested: u.ResetRequested,
	}
}

type operator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeValid(w, r, &req) {
		return
	}

	user, prev, err := h.Engine.Authenticate(r.Context(), req.UserID, req.Password)
	h.Metrics.ObserveLogin(err)
	if err != nil {
		slog.Warn("login failed", "remote", r.RemoteAddr)
		engineError(w, err)
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, user.ID, user.Name, user.IsAdmin)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("user logged in", "user", user.Name)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, User: newProfile(user), PreviousAccess: prev})
}

// Forgot handles POST /api/auth/forgot. The answer is the same whether or
// not the profile exists.
func (h *AuthHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if !decodeValid(w, r, &req) {
		return
	}

	if err := h.Engine.RequestPasswordReset(r.Context(), req.UserID); err != nil {
		slog.Warn("password reset request not recorded", "error", err)
	} else {
		slog.Info("password reset requested", "user_id", req.UserID)
	}
	jsonResponse(w, http.StatusAccepted, map[string]string{"message": "request sent to the administrator"})
}

// Logout handles POST /api/auth/logout by revoking the token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if h.DB != nil && claims.ExpiresAt != nil {
		if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
			slog.Error("failed to revoke token", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to log out")
			return
		}
	}

	slog.Info("user logged out", "user", claims.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	user, err := h.Engine.User(claims.UserID)
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, newProfile(user))
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req changePasswordRequest
	if !decodeValid(w, r, &req) {
		return
	}

	err := h.Engine.ChangeOwnPassword(r.Context(), claims.UserID, req.NewPassword)
	h.Metrics.ObserveMutation("change_password", err)
	if err != nil {
		engineError(w, err)
		return
	}

	slog.Info("user changed own password", "user", claims.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// Operators handles GET /api/operators, the public login selector list.
func (h *AuthHandler) Operators(w http.ResponseWriter, r *http.Request) {
	users := h.Engine.Users()
	out := make([]operator, 0, len(users))
	for _, u := range users {
		out = append(out, operator{ID: u.ID, Name: u.Name, Role: u.Role})
	}
	jsonResponse(w, http.StatusOK, out)
}
