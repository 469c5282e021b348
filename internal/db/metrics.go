package db

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const maxSamplesPerQuery = 512

// QueryStats summarizes recent executions of one named query.
type QueryStats struct {
	Name   string
	Count  int
	Errors int
	P50    time.Duration
	P95    time.Duration
	Max    time.Duration
}

// queryMetrics keeps a bounded window of durations per query for log
// summaries and mirrors every observation to an OTel histogram.
type queryMetrics struct {
	mu       sync.Mutex
	samples  map[string][]time.Duration
	errors   map[string]int
	duration metric.Float64Histogram
}

func newQueryMetrics() *queryMetrics {
	meter := otel.Meter("github.com/fr0stylo/abacate/internal/db")
	duration, _ := meter.Float64Histogram("abacate.db.query.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("SQLite query latency by sqlc query name"),
	)
	return &queryMetrics{
		samples:  make(map[string][]time.Duration),
		errors:   make(map[string]int),
		duration: duration,
	}
}

func (m *queryMetrics) observe(ctx context.Context, name string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if m.duration != nil {
		m.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), metric.WithAttributes(
			attribute.String("db.query_name", name),
			attribute.Bool("error", err != nil),
		))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	window := append(m.samples[name], elapsed)
	if len(window) > maxSamplesPerQuery {
		window = window[len(window)-maxSamplesPerQuery:]
	}
	m.samples[name] = window
	if err != nil {
		m.errors[name]++
	}
}

// slowest returns stats ordered by p95 descending, then name.
func (m *queryMetrics) slowest(limit int) []QueryStats {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	stats := make([]QueryStats, 0, len(m.samples))
	for name, durations := range m.samples {
		if len(durations) == 0 {
			continue
		}
		sorted := slices.Clone(durations)
		slices.Sort(sorted)
		stats = append(stats, QueryStats{
			Name:   name,
			Count:  len(sorted),
			Errors: m.errors[name],
			P50:    sorted[(len(sorted)-1)/2],
			P95:    sorted[int(float64(len(sorted)-1)*0.95)],
			Max:    sorted[len(sorted)-1],
		})
	}
	m.mu.Unlock()

	slices.SortFunc(stats, func(a, b QueryStats) int {
		if a.P95 != b.P95 {
			if a.P95 > b.P95 {
				return -1
			}
			return 1
		}
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

// SlowestQueries returns up to limit query summaries, slowest p95 first.
// A limit <= 0 returns all of them.
func (c *Database) SlowestQueries(limit int) []QueryStats {
	if c == nil {
		return nil
	}
	return c.metrics.slowest(limit)
}
