package tracing

import "context"

// StageHook wraps one Operation Executor pipeline stage in a span named
// after it. Its signature matches internal/executor.StageFunc structurally
// so it can be assigned to Executor.Stage without pkg/tracing importing
// internal/executor.
func StageHook(ctx context.Context, stage string, fn func(ctx context.Context) error) error {
	ctx, span := StartSpan(ctx, "executor."+stage)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		RecordError(ctx, err)
	}
	return err
}
