package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/sinalizacao/internal/engine"
	"github.com/erazemk/sinalizacao/internal/model"
)

// UsersHandler handles user directory endpoints.
type UsersHandler struct {
	*Deps
}

type createUserRequest struct {
	Name        string             `json:"name" validate:"notblank,max=100"`
	Role        string             `json:"role" validate:"max=100"`
	Password    string             `json:"password" validate:"required,min=4,max=72"`
	Permissions *model.Permissions `json:"permissions"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"max=72"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	users, err := h.Engine.ListUsers(claims.UserID)
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createUserRequest
	if !decodeValid(w, r, &req) {
		return
	}

	u, err := h.Engine.AddUser(r.Context(), claims.UserID, engine.UserInput{
		Name:        req.Name,
		Role:        req.Role,
		Secret:      req.Password,
		Permissions: req.Permissions,
	})
	h.Metrics.ObserveMutation("add_user", err)
	if err != nil {
		engineError(w, err)
		return
	}

	slog.Info("user created", "user", claims.Name, "new_user", u.Name)
	jsonResponse(w, http.StatusCreated, u)
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	removed, err := h.Engine.RemoveUser(r.Context(), claims.UserID, r.PathValue("id"))
	h.Metrics.ObserveMutation("remove_user", err)
	if err != nil {
		engineError(w, err)
		return
	}

	slog.Info("user deleted", "user", claims.Name, "deleted_user", removed.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

// ResetPassword handles PUT /api/users/{id}/password. An empty password
// resets to the default secret.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req resetPasswordRequest
	if !decodeValid(w, r, &req) {
		return
	}

	target := r.PathValue("id")
	err := h.Engine.AdminResetPassword(r.Context(), claims.UserID, target, req.Password)
	h.Metrics.ObserveMutation("reset_password", err)
	if err != nil {
		engineError(w, err)
		return
	}

	slog.Info("password reset by manager", "user", claims.Name, "target", target)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// TogglePermission handles POST /api/users/{id}/permissions/{capability}.
func (h *UsersHandler) TogglePermission(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	c := model.Capability(r.PathValue("capability"))

	u, err := h.Engine.ToggleUserPermission(r.Context(), claims.UserID, r.PathValue("id"), c)
	h.Metrics.ObserveMutation("toggle_permission", err)
	if err != nil {
		engineError(w, err)
		return
	}

	slog.Info("permission toggled", "user", claims.Name, "target", u.Name, "capability", c, "granted", u.Permissions.Has(c))
	jsonResponse(w, http.StatusOK, u)
}
