package renewal

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hiredeck/domainkit/core/logger"
)

// Severity grades an expiry alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityCritical Severity = "critical"
)

// Alert describes an upcoming certificate expiry or an exhausted renewal.
type Alert struct {
	TenantID     uuid.UUID
	Domain       string
	ContactEmail string
	Expiry       time.Time
	DaysLeft     int
	Severity     Severity

	// Reason carries the last error on renewal-failure alerts; empty on
	// plain expiry alerts.
	Reason string
}

// Alerter delivers expiry and renewal-failure alerts. Delivery failures are
// logged by the sweep but never block renewal.
type Alerter interface {
	CertificateExpiring(ctx context.Context, alert Alert) error
	RenewalFailed(ctx context.Context, alert Alert) error
}

// LogAlerter writes alerts to the log. It is the default when no delivery
// channel is configured.
type LogAlerter struct {
	log *slog.Logger
}

// NewLogAlerter creates an Alerter backed by log.
func NewLogAlerter(log *slog.Logger) *LogAlerter {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &LogAlerter{log: log}
}

func (a *LogAlerter) CertificateExpiring(ctx context.Context, alert Alert) error {
	attrs := []any{
		logger.TenantID(alert.TenantID.String()),
		logger.Domain(alert.Domain),
		slog.Time("expiry", alert.Expiry),
		slog.Int("days_left", alert.DaysLeft),
	}

	if alert.Severity == SeverityCritical {
		a.log.ErrorContext(ctx, "certificate expiring soon", attrs...)
	} else {
		a.log.WarnContext(ctx, "certificate approaching expiry", attrs...)
	}
	return nil
}

func (a *LogAlerter) RenewalFailed(ctx context.Context, alert Alert) error {
	a.log.ErrorContext(ctx, "certificate renewal failing, needs attention",
		logger.TenantID(alert.TenantID.String()),
		logger.Domain(alert.Domain),
		slog.Time("expiry", alert.Expiry),
		slog.Int("days_left", alert.DaysLeft),
		slog.String("reason", alert.Reason))
	return nil
}
