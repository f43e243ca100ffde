// Package routes wires handlers, policy checks and limiters into the router.
package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"famportal/config"
	"famportal/controllers"
	"famportal/controllers/admins"
	"famportal/controllers/auth"
	"famportal/controllers/users"
	"famportal/middleware"
	"famportal/services"
	"famportal/storage"
	"famportal/utils"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Config   *config.Config
	Services *services.Services
	Tokens   *utils.Tokens
	Guard    *middleware.LoginGuard
	// Uploader is nil when object storage is not configured.
	Uploader storage.Uploader
}

var defaultOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

func optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "famportal-api",
	})
}

// New builds the router. Request logging, security headers, request ids,
// timeouts and panic recovery wrap it in main.
func New(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics)

	origins := append([]string{}, d.Config.CORSOrigins...)
	if len(origins) == 0 {
		origins = defaultOrigins
	}
	r.Use(handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"}),
		handlers.ExposedHeaders([]string{"Content-Disposition", "Retry-After", "X-Request-ID"}),
		handlers.AllowCredentials(),
	))

	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.PathPrefix("/").HandlerFunc(optionsHandler).Methods(http.MethodOptions)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	authn := &middleware.Auth{Tokens: d.Tokens, Members: d.Services.Members}
	info := &controllers.Info{Settings: d.Services.Settings}
	authH := &auth.Handler{Members: d.Services.Members, Tokens: d.Tokens, Guard: d.Guard}
	usersH := &users.Handler{Svc: d.Services, Tokens: d.Tokens, Uploader: d.Uploader}
	adminsH := &admins.Handler{Svc: d.Services}

	// login/register: 60 per IP per 5 minutes
	loginLimiter := middleware.NewIPRateLimiter(60, 5*time.Minute, d.Config.TrustedProxies)
	// per user per minute: 120 reads, 60 writes, 10 uploads
	userLimiter := middleware.NewUserRateLimiter(120, 60, 10, time.Minute)

	public := api.NewRoute().Subrouter()
	public.Use(middleware.MaxBody(d.Config.MaxBodyBytes))
	public.HandleFunc("/info", info.Public).Methods(http.MethodGet)
	public.Handle("/register", loginLimiter.Middleware(http.HandlerFunc(authH.Register))).Methods(http.MethodPost)
	public.Handle("/login", loginLimiter.Middleware(http.HandlerFunc(authH.Login))).Methods(http.MethodPost)
	public.Handle("/refresh", loginLimiter.Middleware(http.HandlerFunc(authH.Refresh))).Methods(http.MethodPost)

	uploads := api.PathPrefix("/uploads").Subrouter()
	uploads.Use(authn.Authenticate, userLimiter.Middleware,
		middleware.MaxBody(storage.MaxFiles*storage.MaxFileBytes+1<<20))
	UploadRoutes(uploads, usersH)

	authed := api.NewRoute().Subrouter()
	authed.Use(authn.Authenticate, userLimiter.Middleware, middleware.MaxBody(d.Config.MaxBodyBytes))
	authed.HandleFunc("/logout", authH.Logout).Methods(http.MethodPost)
	authed.HandleFunc("/logout-all", authH.LogoutAll).Methods(http.MethodPost)

	AdminRoutes(authed.PathPrefix("/admin").Subrouter(), adminsH)
	UserRoutes(authed, usersH)

	return r
}
