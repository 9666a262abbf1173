package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// authMetrics holds the service-level counters. Instrument creation can
// only fail on malformed names, so a nil-instrument noop fallback keeps the
// service running without metrics rather than failing startup.
type authMetrics struct {
	logins          metric.Int64Counter
	lockouts        metric.Int64Counter
	sessionsIssued  metric.Int64Counter
	sessionsRevoked metric.Int64Counter
}

func newAuthMetrics() *authMetrics {
	meter := otel.Meter("auth-service")
	m := &authMetrics{}

	m.logins, _ = meter.Int64Counter("auth_logins_total",
		metric.WithDescription("Login attempts by outcome."))
	m.lockouts, _ = meter.Int64Counter("auth_lockouts_total",
		metric.WithDescription("Accounts locked after repeated failures."))
	m.sessionsIssued, _ = meter.Int64Counter("auth_sessions_issued_total",
		metric.WithDescription("Sessions created at register, login and rotation."))
	m.sessionsRevoked, _ = meter.Int64Counter("auth_sessions_revoked_total",
		metric.WithDescription("Sessions revoked by logout, rotation and admin action."))

	return m
}

func (m *authMetrics) recordLogin(ctx context.Context, outcome string) {
	if m == nil || m.logins == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *authMetrics) recordLockout(ctx context.Context) {
	if m == nil || m.lockouts == nil {
		return
	}
	m.lockouts.Add(ctx, 1)
}

func (m *authMetrics) recordSessionIssued(ctx context.Context) {
	if m == nil || m.sessionsIssued == nil {
		return
	}
	m.sessionsIssued.Add(ctx, 1)
}

func (m *authMetrics) recordSessionsRevoked(ctx context.Context, n int64) {
	if m == nil || m.sessionsRevoked == nil || n <= 0 {
		return
	}
	m.sessionsRevoked.Add(ctx, n)
}
