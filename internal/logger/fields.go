package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the context.
const (
	FieldRequestID     = "request_id"
	FieldJobID         = "job_id"
	FieldJobKind       = "job_kind"
	FieldComponent     = "component"
	FieldFile          = "file"
	FieldProcessNumber = "process_number"
)

// Metric fields, set per entry.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
	FieldPages      = "pages"
)
