// Package errortracking provides a pluggable error-reporting sink so
// warnings and failures surfaced by the Operation Executor can be
// forwarded to an external tracker without the rest of RAMOSE knowing
// which one is configured.
package errortracking

import "context"

// Severity represents the severity level of a captured event.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityDebug   Severity = "debug"
)

// Provider is implemented by every error-tracking backend RAMOSE can
// report to.
type Provider interface {
	CaptureError(ctx context.Context, err error, severity Severity, extra map[string]interface{})
	CaptureMessage(ctx context.Context, message string, severity Severity, extra map[string]interface{})
	CapturePanic(ctx context.Context, recovered interface{}, stackTrace []byte, extra map[string]interface{})
	Flush(timeoutSeconds int) bool
	Close() error
}
