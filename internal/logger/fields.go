package logger

// Standard field keys for structured logging. Use these consistently so
// aggregated logs stay queryable across components.
const (
	// Tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Request
	KeyRequestID = "request_id"
	KeyMethod    = "method"
	KeyPath      = "path"
	KeyStatus    = "status"
	KeyClientIP  = "client_ip"
	KeyUser      = "user"

	// Content addressing
	KeyCID      = "cid"
	KeySize     = "size"
	KeyMimeType = "mime_type"

	// Dispatch
	KeyAlias   = "alias"
	KeyServer  = "server"
	KeyTarget  = "target"
	KeyHops    = "hops"
	KeyOutcome = "outcome"

	// Timing
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)
