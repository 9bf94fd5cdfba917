package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are attached to every record logged with a context carrying them.
type LogFields struct {
	RequestID   string
	Fingerprint string // rate limit client fingerprint, never the raw IP
	Component   string
}

// WithLogFields merges fields into ctx. Non-empty values in fields win.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := GetLogFields(ctx)
	if fields.RequestID != "" {
		merged.RequestID = fields.RequestID
	}
	if fields.Fingerprint != "" {
		merged.Fingerprint = fields.Fingerprint
	}
	if fields.Component != "" {
		merged.Component = fields.Component
	}
	return context.WithValue(ctx, logFieldsKey, merged)
}

func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

// Truncate shortens s to maxLen bytes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
