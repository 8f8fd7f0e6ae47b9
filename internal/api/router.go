package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/sinalizacao/internal/assistant"
	"github.com/erazemk/sinalizacao/internal/engine"
	"github.com/erazemk/sinalizacao/internal/metrics"
	"github.com/erazemk/sinalizacao/internal/web"
)

// Deps are the collaborators shared by every handler.
type Deps struct {
	Engine    *engine.Engine
	DB        *sql.DB // token revocation; may be nil
	JWTSecret string
	Templates *web.Templates
	Metrics   *metrics.Metrics // may be nil

	Assistant        assistant.Asker // may be nil; answers fall back
	AssistantTimeout time.Duration

	// LoginRate limits login and forgot-password attempts per minute per IP.
	LoginRate int
}

// NewRouter creates the HTTP handler with every endpoint registered.
// Authorization of mutations is left to the engine: handlers pass the
// token's user id and map the engine's errors.
func NewRouter(d *Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{d}
	itemsHandler := &ItemsHandler{d}
	usersHandler := &UsersHandler{d}
	assistantHandler := &AssistantHandler{d}

	authMW := AuthMiddleware(d.JWTSecret, d.DB, d.Engine)
	limited := RateLimit(d.LoginRate)

	// Public.
	mux.Handle("POST /api/auth/login", limited(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/auth/forgot", limited(http.HandlerFunc(authHandler.Forgot)))
	mux.HandleFunc("GET /api/operators", authHandler.Operators)
	mux.Handle("GET /metrics", d.Metrics.Handler())

	// Session.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Items.
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.Handle("GET /api/items/{id}/qr", authMW(http.HandlerFunc(itemsHandler.QR)))
	mux.Handle("GET /api/items/{id}/label", authMW(http.HandlerFunc(itemsHandler.Label)))
	mux.Handle("GET /api/items/{id}/print", authMW(http.HandlerFunc(itemsHandler.Print)))
	mux.Handle("GET /api/report", authMW(http.HandlerFunc(itemsHandler.Report)))
	mux.Handle("GET /api/stats", authMW(http.HandlerFunc(itemsHandler.Stats)))

	// Users.
	mux.Handle("GET /api/users", authMW(http.HandlerFunc(usersHandler.List)))
	mux.Handle("POST /api/users", authMW(http.HandlerFunc(usersHandler.Create)))
	mux.Handle("DELETE /api/users/{id}", authMW(http.HandlerFunc(usersHandler.Delete)))
	mux.Handle("PUT /api/users/{id}/password", authMW(http.HandlerFunc(usersHandler.ResetPassword)))
	mux.Handle("POST /api/users/{id}/permissions/{capability}", authMW(http.HandlerFunc(usersHandler.TogglePermission)))

	// Assistant.
	mux.Handle("POST /api/assistant", authMW(http.HandlerFunc(assistantHandler.Ask)))

	return LoggingMiddleware(SecureHeaders(d.Metrics.Middleware(mux)))
}
