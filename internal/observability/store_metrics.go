package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	storeMetricsOnce sync.Once
	storeOpCounter   metric.Int64Counter
)

// RecordStoreOperation counts one store-level operation per entity/op pair.
// Outcome is success, not_found, conflict or error.
func RecordStoreOperation(ctx context.Context, entity, op, outcome string) {
	storeMetricsOnce.Do(func() {
		counter, err := otel.Meter("trubax-core").Int64Counter("store.operations")
		if err == nil {
			storeOpCounter = counter
		}
	})
	if storeOpCounter == nil {
		return
	}
	storeOpCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}
