// Package metrics defines the metric collection interfaces and the global
// registry gate. Implementations live in subpackages; when metrics are
// disabled the constructors return nil and callers skip collection.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry enables metrics collection with a fresh registry.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	registry = prometheus.NewRegistry()
	return registry
}

// GetRegistry returns the active registry, or nil when disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// RouterMetrics observes request dispatch.
type RouterMetrics interface {
	// ObserveRequest records one routed request with its dispatch outcome
	// (builtin, alias, server, versioned, cid, not_found, loop, truncated),
	// duration in seconds and redirect hops followed.
	ObserveRequest(outcome string, seconds float64, hops int)
}

// StoreMetrics observes the CID pool.
type StoreMetrics interface {
	// ObservePut records one successful put with the content size.
	ObservePut(size int)
}

// ExecMetrics observes server executions.
type ExecMetrics interface {
	// ObserveInvocation records one server run.
	ObserveInvocation(server string, seconds float64, failed bool)
}

// ExportMetrics observes snapshot generation.
type ExportMetrics interface {
	// ObserveExport records one export with payload size in bytes.
	ObserveExport(seconds float64, size int)
}
