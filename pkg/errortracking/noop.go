package errortracking

import "context"

// NoOpProvider discards every captured event. It is the default when
// error tracking is not configured.
type NoOpProvider struct{}

// NewNoOpProvider returns a Provider that does nothing.
func NewNoOpProvider() *NoOpProvider {
	return &NoOpProvider{}
}

func (n *NoOpProvider) CaptureError(ctx context.Context, err error, severity Severity, extra map[string]interface{}) {
}

func (n *NoOpProvider) CaptureMessage(ctx context.Context, message string, severity Severity, extra map[string]interface{}) {
}

func (n *NoOpProvider) CapturePanic(ctx context.Context, recovered interface{}, stackTrace []byte, extra map[string]interface{}) {
}

func (n *NoOpProvider) Flush(timeoutSeconds int) bool { return true }

func (n *NoOpProvider) Close() error { return nil }
