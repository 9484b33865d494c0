// Package observability holds the Prometheus collectors and OpenTelemetry
// tracer shared across the service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alumnihub_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "alumnihub_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// MembershipTransitions counts membership state changes.
	MembershipTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alumnihub_membership_transitions_total",
		Help: "Membership state machine transitions by action and resulting status",
	}, []string{"action", "status"})

	// ModerationActions counts appended moderation log rows.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alumnihub_moderation_actions_total",
		Help: "Moderation actions recorded by entity type and action",
	}, []string{"entity_type", "action"})

	// ContentCreated counts posts and comments by their initial status.
	ContentCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alumnihub_content_created_total",
		Help: "Posts and comments created by kind and initial status",
	}, []string{"kind", "status"})

	// ReportsFiled counts reports by reason.
	ReportsFiled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alumnihub_reports_filed_total",
		Help: "Content reports filed by reason",
	}, []string{"reason"})

	// SuspensionsExpired counts suspensions lifted by the sweeper.
	SuspensionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alumnihub_suspensions_expired_total",
		Help: "Suspensions lifted automatically after their end date",
	})

	// EventPublishFailures counts domain events that could not be published.
	EventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alumnihub_event_publish_failures_total",
		Help: "Domain events that failed to publish by sink",
	}, []string{"sink"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alumnihub_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alumnihub_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

const queryStartKey = "alumnihub:query_start"

// RegisterQueryMetrics installs gorm callbacks that observe every statement
// into DatabaseQueryLatency.
func RegisterQueryMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) { tx.InstanceSet(queryStartKey, time.Now()) }
	after := func(op string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			DatabaseQueryLatency.WithLabelValues(op, tx.Statement.Table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("metrics:before_create", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("metrics:after_create", after("create")); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("metrics:before_query", before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("metrics:after_query", after("query")); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("metrics:before_update", before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("metrics:after_update", after("update")); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("metrics:before_delete", before); err != nil {
		return err
	}
	return cb.Delete().After("gorm:delete").Register("metrics:after_delete", after("delete"))
}
