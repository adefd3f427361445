package postgres

import (
	"time"

	"fluvex/internal/observability"
)

// observe records the latency of one query
func observe(operation, table string, start time.Time) {
	observability.DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}
