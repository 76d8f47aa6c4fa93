// Package router dispatches requests that no built-in route claimed:
// alias, then server, then versioned server, then CID, then 404.
// Internal redirects re-enter the pipeline up to a bounded depth.
package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashbeam/cidhub/internal/logger"
	"github.com/hashbeam/cidhub/pkg/alias"
	"github.com/hashbeam/cidhub/pkg/content"
	"github.com/hashbeam/cidhub/pkg/metrics"
	"github.com/hashbeam/cidhub/pkg/models"
	"github.com/hashbeam/cidhub/pkg/transform"
)

// MaxChainHops bounds how many internal redirects one request may follow.
const MaxChainHops = 20

// Chain annotation headers.
const (
	HeaderChainHops   = "X-Chain-Hops"
	HeaderChainStatus = "X-Chain-Status"
)

// Router resolves non-built-in paths.
type Router struct {
	content  *content.Service
	resolver *alias.Resolver
	executor *transform.Executor
	metrics  metrics.RouterMetrics

	// Builtin reports whether a path belongs to the built-in route set.
	// A chain hop landing on a built-in leaves the pipeline with a real
	// 302 so the client re-enters through the mux.
	Builtin func(path string) bool

	// UserFromRequest identifies the requesting user. Defaults to the
	// anonymous user.
	UserFromRequest func(*http.Request) string
}

// New creates a router over the content service, alias resolver, and
// executor. metrics may be nil when disabled.
func New(c *content.Service, r *alias.Resolver, e *transform.Executor, m metrics.RouterMetrics) *Router {
	return &Router{
		content:  c,
		resolver: r,
		executor: e,
		metrics:  m,
		UserFromRequest: func(*http.Request) string {
			return models.AnonymousUserID
		},
	}
}

// Normalize canonicalizes a request path: leading slash, collapsed
// slashes, no trailing slash except root. Query and fragment are
// dropped so redirect targets like "/x?a=1" re-enter the pipeline as
// plain paths.
func Normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" || p[0] != '/' {
		p = "/" + p
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}

// ServeHTTP runs the resolution pipeline, chasing internal redirects.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := rt.UserFromRequest(r)
	path := Normalize(r.URL.Path)

	seen := map[string]bool{}
	hops := 0
	for {
		if seen[path] {
			w.Header().Set(HeaderChainHops, strconv.Itoa(hops))
			w.Header().Set(HeaderChainStatus, "loop detected")
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Redirect loop detected\n"))
			rt.finish("loop", start, hops)
			return
		}
		seen[path] = true

		next, outcome, handled := rt.step(w, r, userID, path, hops)
		if handled {
			rt.finish(outcome, start, hops)
			return
		}

		hops++
		if hops > MaxChainHops {
			w.Header().Set(HeaderChainHops, strconv.Itoa(hops))
			w.Header().Set(HeaderChainStatus, "chain truncated")
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Redirect chain truncated\n"))
			rt.finish("truncated", start, hops)
			return
		}
		path = Normalize(next)

		if rt.Builtin != nil && rt.Builtin(path) {
			w.Header().Set(HeaderChainHops, strconv.Itoa(hops))
			http.Redirect(w, r, path, http.StatusFound)
			rt.finish("builtin", start, hops)
			return
		}
	}
}

func (rt *Router) finish(outcome string, start time.Time, hops int) {
	if rt.metrics != nil {
		rt.metrics.ObserveRequest(outcome, time.Since(start).Seconds(), hops)
	}
	logger.Debug("pipeline resolved",
		logger.KeyOutcome, outcome,
		logger.KeyHops, hops,
		logger.KeyDurationMs, time.Since(start).Milliseconds())
}

// step resolves one hop. It either returns the next internal path, or
// writes the response and reports how it resolved. The hop-count header
// is staged up front so any terminal response in this hop carries it.
func (rt *Router) step(w http.ResponseWriter, r *http.Request, userID, path string, hops int) (next, outcome string, handled bool) {
	ctx := r.Context()
	w.Header().Set(HeaderChainHops, strconv.Itoa(hops))

	// Alias.
	route, err := rt.resolver.Resolve(ctx, userID, path)
	if err != nil {
		rt.internalError(w, err)
		return "", "error", true
	}
	if route != nil {
		return route.Target, "alias", false
	}

	// Server.
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if name := segments[0]; name != "" {
		next, outcome, handled, matched := rt.stepServer(w, r, userID, name, segments[1:])
		if matched {
			return next, outcome, handled
		}
	}

	// CID.
	if served, ok := rt.serveCID(w, r, path); ok {
		return "", served, true
	}

	http.NotFound(w, r)
	return "", "notfound", true
}

// stepServer handles server and versioned-server resolution. matched is
// false when the name is not a server at all and resolution should fall
// through to CID serving.
func (rt *Router) stepServer(w http.ResponseWriter, r *http.Request, userID, name string, extra []string) (next, outcome string, handled, matched bool) {
	ctx := r.Context()

	sv, err := rt.content.Store().GetEnabledServer(ctx, userID, name)
	if err != nil && !errors.Is(err, models.ErrServerNotFound) {
		rt.internalError(w, err)
		return "", "error", true, true
	}
	enabled := err == nil

	// A single extra segment is tried as a definition-version prefix
	// first; on zero matches it falls back to ordinary execution.
	if len(extra) == 1 {
		def, _, verr := rt.executor.ResolveVersion(ctx, userID, name, extra[0])
		switch {
		case verr == nil:
			oc, runErr := rt.executor.Execute(ctx, userID, name, def, transform.NewRequestDetails(r, nil), nil)
			if runErr != nil {
				rt.runError(w, runErr)
				return "", "error", true, true
			}
			return oc.RedirectPath, "versioned", false, true
		case isAmbiguous(verr):
			var av *transform.AmbiguousVersionError
			errors.As(verr, &av)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"matches": av.Matches})
			return "", "versioned", true, true
		case !errors.Is(verr, models.ErrServerNotFound):
			rt.internalError(w, verr)
			return "", "error", true, true
		}
	}

	if !enabled {
		return "", "", false, false
	}

	oc, runErr := rt.executor.Execute(ctx, userID, name, sv.Definition,
		transform.NewRequestDetails(r, extra), extra)
	if runErr != nil {
		rt.runError(w, runErr)
		return "", "error", true, true
	}
	return oc.RedirectPath, "server", false, true
}

func isAmbiguous(err error) bool {
	var av *transform.AmbiguousVersionError
	return errors.As(err, &av)
}

func (rt *Router) runError(w http.ResponseWriter, runErr *transform.RunError) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(runErr.Body()))
}

func (rt *Router) internalError(w http.ResponseWriter, err error) {
	logger.Error("pipeline failure", logger.KeyError, err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
