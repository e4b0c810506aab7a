package logging

import (
	"context"

	"go.uber.org/zap"
)

type runCtxKey struct{}
type stepCtxKey struct{}

// WithRunID stores the pipeline run id in ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runCtxKey{}, runID)
}

// RunIDFromContext returns the pipeline run id, empty if none.
func RunIDFromContext(ctx context.Context) string {
	runID, _ := ctx.Value(runCtxKey{}).(string)
	return runID
}

// WithStep stores the current pipeline step name in ctx.
func WithStep(ctx context.Context, step string) context.Context {
	return context.WithValue(ctx, stepCtxKey{}, step)
}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	var fields []zap.Field
	if runID := RunIDFromContext(ctx); runID != "" {
		fields = append(fields, zap.String("run.id", runID))
	}
	if step, _ := ctx.Value(stepCtxKey{}).(string); step != "" {
		fields = append(fields, zap.String("step", step))
	}
	return fields
}
