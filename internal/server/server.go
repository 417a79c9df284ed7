package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/hongminglow/cabinet-be/internal/auth"
	"github.com/hongminglow/cabinet-be/internal/config"
	"github.com/hongminglow/cabinet-be/internal/http/handlers"
	"github.com/hongminglow/cabinet-be/internal/middleware"
	"github.com/hongminglow/cabinet-be/internal/models/dto"
	"github.com/hongminglow/cabinet-be/internal/observability"
	"github.com/hongminglow/cabinet-be/internal/rbac"
)

// Deps are the services the HTTP layer routes to.
type Deps struct {
	Auth       *auth.Service
	Tokens     *auth.TokenManager
	Authorizer *rbac.Authorizer
	Roles      *rbac.Manager
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           NewRouter(cfg, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return &Server{inner: httpServer}
}

// NewRouter builds the chi router with the full middleware stack.
func NewRouter(cfg config.Config, deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	validate := dto.NewValidator()

	r := chi.NewRouter()
	for _, mw := range middlewareStack(cfg, deps.Metrics, logger) {
		r.Use(mw)
	}

	guards := handlers.Guards{
		Session:   middleware.Authenticate(deps.Tokens, logger),
		RateLimit: httprate.Limit(cfg.LoginRateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
	}
	if cfg.GuardRBACMutations {
		guards.Mutations = middleware.RequireAny(logger, string(rbac.ManageStaff), string(rbac.UserUpdate))
	} else if cfg.IsProduction() {
		logger.Warn("role and permission mutations are open to any session; set RBAC_GUARD_MUTATIONS=true to require MANAGE_STAFF or USER_UPDATE")
	}

	handlers.NewHealthHandler(time.Now()).Register(r)
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	handlers.NewAuthHandler(deps.Auth, validate, logger).Register(r, guards)

	r.Route("/api", func(r chi.Router) {
		r.Use(guards.Session)
		handlers.NewRoleHandler(deps.Roles, validate, logger).Register(r, guards)
		handlers.NewUserRoleHandler(deps.Authorizer, validate, logger).Register(r, guards)
	})
	return r
}

func middlewareStack(cfg config.Config, metrics *observability.Metrics, logger *slog.Logger) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	if cfg.RequestTimeout > 0 {
		timeout = cfg.RequestTimeout
	}

	middlewares := []func(http.Handler) http.Handler{
		chimw.RealIP,
		chimw.RequestID,
		middleware.RequestLogger(logger),
		chimw.Recoverer,
		middleware.CORS(cfg.CORSOrigins),
		chimw.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					logger.Warn("secure headers blocked request", slog.Any("error", err))
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		chimw.Compress(5),
	}
	if metrics != nil {
		middlewares = append(middlewares, metrics.Middleware)
	}
	return middlewares
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
