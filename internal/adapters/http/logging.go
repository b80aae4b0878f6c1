package http

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
)

const serviceName = "volante-express"

func httpLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "http",
		"layer", "adapter",
	)
}

// requestFields tags a log line with the matched route and, on
// authenticated routes, the caller's identity and region.
func requestFields(ctx context.Context) []any {
	fields := []any{"request_id", requestIDFromContext(ctx)}
	if rctx := chi.RouteContext(ctx); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			fields = append(fields, "route", pattern)
		}
	}
	if claims, ok := claimsFromContext(ctx); ok {
		fields = append(fields, "user_id", claims.UserID.String(), "role", claims.Role)
		if claims.RegionID != "" {
			fields = append(fields, "region_id", claims.RegionID)
		}
	}
	return fields
}

func logHTTPOperationError(ctx context.Context, operation string, statusCode int, code, message string, err error) {
	fields := []any{
		"operation", operation,
		"outcome", "failure",
		"status_code", statusCode,
		"error_code", code,
		"message", message,
	}
	fields = append(fields, requestFields(ctx)...)
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	if statusCode >= 500 {
		httpLogger().ErrorContext(ctx, "http operation failed", fields...)
		return
	}
	httpLogger().WarnContext(ctx, "http operation failed", fields...)
}
