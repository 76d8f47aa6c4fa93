// Package api assembles the built-in HTTP routes and mounts the content
// resolution pipeline behind them.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hashbeam/cidhub/internal/logger"
	"github.com/hashbeam/cidhub/pkg/api/auth"
	"github.com/hashbeam/cidhub/pkg/api/handlers"
	"github.com/hashbeam/cidhub/pkg/api/middleware"
	"github.com/hashbeam/cidhub/pkg/content"
	"github.com/hashbeam/cidhub/pkg/export"
	"github.com/hashbeam/cidhub/pkg/metrics"
	"github.com/hashbeam/cidhub/pkg/router"
)

// Config holds the router assembly inputs.
type Config struct {
	Content  *content.Service
	Pipeline *router.Router
	Engine   *export.Engine
	Importer *export.Importer
	Tokens   *auth.Service

	// SecretKey encrypts secret values at rest.
	SecretKey string

	// MaxBodyBytes caps upload and import bodies.
	MaxBodyBytes int64

	// RequestTimeout bounds one request end to end. Zero means 60s, wide
	// enough for forward transforms.
	RequestTimeout time.Duration
}

// builtinPrefixes claim paths for the API surface. Everything else falls
// through to the resolution pipeline, so aliases and servers cannot
// shadow these.
var builtinPrefixes = []string{
	"/api", "/auth", "/upload", "/export", "/import",
	"/openapi", "/healthz", "/metrics",
}

// Builtin reports whether a normalized path belongs to the API surface.
func Builtin(path string) bool {
	for _, prefix := range builtinPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return path == "/openapi.json"
}

// NewRouter configures the chi router with all middleware and routes.
// Unmatched paths resolve through the pipeline.
func NewRouter(cfg Config) http.Handler {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Identity(cfg.Tokens))

	s := cfg.Content.Store()
	entityHandler := handlers.NewEntityHandler(s, cfg.SecretKey, Builtin)
	uploadHandler := handlers.NewUploadHandler(cfg.Content, cfg.MaxBodyBytes, nil)
	workspaceHandler := handlers.NewWorkspaceHandler(cfg.Content, cfg.Engine, cfg.Importer, cfg.MaxBodyBytes)
	healthHandler := handlers.NewHealthHandler(s)
	openapiHandler := handlers.NewOpenAPIHandler()

	r.Get("/", workspaceHandler.Dashboard)
	r.Get("/healthz", healthHandler.Liveness)
	r.Get("/openapi.json", openapiHandler.JSON)
	r.Get("/openapi", openapiHandler.Page)

	if metrics.IsEnabled() {
		r.Get("/metrics", promhttp.HandlerFor(
			metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP)
	}

	if cfg.Tokens != nil {
		authHandler := handlers.NewAuthHandler(s, cfg.Tokens)
		r.Post("/auth/login", authHandler.Login)
	}

	r.Post("/upload", uploadHandler.Upload)

	r.Get("/export", workspaceHandler.Export)
	r.Post("/export", workspaceHandler.Export)
	r.Post("/export/size", workspaceHandler.ExportSize)
	r.Get("/import", workspaceHandler.Import)
	r.Post("/import", workspaceHandler.Import)

	r.Route("/api", func(r chi.Router) {
		r.Route("/aliases", func(r chi.Router) {
			r.Get("/", entityHandler.ListAliases)
			r.Post("/", entityHandler.CreateAlias)
			r.Get("/{name}", entityHandler.GetAlias)
			r.Put("/{name}", entityHandler.UpdateAlias)
			r.Delete("/{name}", entityHandler.DeleteAlias)
			r.Get("/{name}/history", entityHandler.History("alias"))
		})
		r.Route("/servers", func(r chi.Router) {
			r.Get("/", entityHandler.ListServers)
			r.Post("/", entityHandler.CreateServer)
			r.Get("/{name}", entityHandler.GetServer)
			r.Put("/{name}", entityHandler.UpdateServer)
			r.Delete("/{name}", entityHandler.DeleteServer)
			r.Get("/{name}/history", entityHandler.History("server"))
		})
		r.Route("/variables", func(r chi.Router) {
			r.Get("/", entityHandler.ListVariables)
			r.Post("/", entityHandler.CreateVariable)
			r.Get("/{name}", entityHandler.GetVariable)
			r.Put("/{name}", entityHandler.UpdateVariable)
			r.Delete("/{name}", entityHandler.DeleteVariable)
			r.Get("/{name}/history", entityHandler.History("variable"))
		})
		r.Route("/secrets", func(r chi.Router) {
			r.Get("/", entityHandler.ListSecrets)
			r.Post("/", entityHandler.CreateSecret)
			r.Get("/{name}", entityHandler.GetSecret)
			r.Put("/{name}", entityHandler.UpdateSecret)
			r.Delete("/{name}", entityHandler.DeleteSecret)
			r.Get("/{name}/history", entityHandler.History("secret"))
		})
	})

	// Everything else is content: aliases, servers, CIDs.
	cfg.Pipeline.Builtin = Builtin
	cfg.Pipeline.UserFromRequest = middleware.UserFromRequest
	r.NotFound(cfg.Pipeline.ServeHTTP)

	return r
}

// requestLogger logs requests through the internal logger. Health and
// metrics scrapes log at DEBUG to keep the noise down.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimiddleware.GetReqID(r.Context())

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logArgs := []any{
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyStatus, ww.Status(),
			logger.KeySize, ww.BytesWritten(),
			logger.KeyDurationMs, time.Since(start).Milliseconds(),
		}
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			logger.Debug("request completed", logArgs...)
		} else {
			logger.Info("request completed", logArgs...)
		}
	})
}
