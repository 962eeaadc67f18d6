package renewal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hiredeck/domainkit/core/certificate"
	"github.com/hiredeck/domainkit/core/logger"
	"github.com/hiredeck/domainkit/core/tenant"
)

// Renewer obtains a fresh certificate for a domain. Satisfied by
// certificate.Manager.
type Renewer interface {
	IssueOrRenew(ctx context.Context, domain, contactEmail string) (*certificate.Result, error)
}

// ExpirySource reads the authoritative expiry from the certificate file.
// Satisfied by certificate.Storage.
type ExpirySource interface {
	Expiry(domain string) (time.Time, error)
}

// Config holds the renewal policy.
type Config struct {
	// SweepInterval is how often the scheduler walks all tenants.
	SweepInterval time.Duration `env:"RENEWAL_SWEEP_INTERVAL" envDefault:"12h"`

	// RenewWithinDays triggers renewal once this few days of validity remain.
	RenewWithinDays int `env:"RENEWAL_WITHIN_DAYS" envDefault:"30"`

	// InfoAlertDays and CriticalAlertDays set the tiered alert thresholds.
	InfoAlertDays     int `env:"RENEWAL_INFO_ALERT_DAYS" envDefault:"14"`
	CriticalAlertDays int `env:"RENEWAL_CRITICAL_ALERT_DAYS" envDefault:"7"`

	// MaxRetries and RetryDelay shape the per-tenant retry policy within a
	// single sweep.
	MaxRetries int           `env:"RENEWAL_MAX_RETRIES" envDefault:"3"`
	RetryDelay time.Duration `env:"RENEWAL_RETRY_DELAY" envDefault:"5m"`

	// DefaultContactEmail is used when a tenant has no contact on file.
	DefaultContactEmail string `env:"ACME_CONTACT_EMAIL,required"`

	ShutdownTimeout time.Duration `env:"RENEWAL_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

func (c *Config) applyDefaults() {
	if c.SweepInterval <= 0 {
		c.SweepInterval = 12 * time.Hour
	}
	if c.RenewWithinDays <= 0 {
		c.RenewWithinDays = 30
	}
	if c.InfoAlertDays <= 0 {
		c.InfoAlertDays = 14
	}
	if c.CriticalAlertDays <= 0 {
		c.CriticalAlertDays = 7
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5 * time.Minute
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// SweepStats summarizes one completed sweep.
type SweepStats struct {
	Checked  int
	Renewed  int
	Alerted  int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// Sweeper walks all certificate-enabled tenants once and renews or alerts as
// the policy dictates.
type Sweeper struct {
	cfg     Config
	store   tenant.Store
	renewer Renewer
	expiry  ExpirySource
	alerter Alerter
	status  tenant.StatusCache
	log     *slog.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithAlerter sets the alert delivery channel.
func WithAlerter(a Alerter) SweeperOption {
	return func(s *Sweeper) {
		if a != nil {
			s.alerter = a
		}
	}
}

// WithStatusCache sets the failure-reason cache.
func WithStatusCache(c tenant.StatusCache) SweeperOption {
	return func(s *Sweeper) {
		if c != nil {
			s.status = c
		}
	}
}

// WithExpirySource overrides where the sweep reads certificate expiry from.
// Defaults to trusting the persisted tenant record.
func WithExpirySource(src ExpirySource) SweeperOption {
	return func(s *Sweeper) {
		if src != nil {
			s.expiry = src
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRetrySleeper overrides the delay between retry attempts, for tests.
func WithRetrySleeper(sleep func(ctx context.Context, d time.Duration) error) SweeperOption {
	return func(s *Sweeper) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// NewSweeper creates a sweeper over the given store and renewer.
func NewSweeper(cfg Config, store tenant.Store, renewer Renewer, opts ...SweeperOption) (*Sweeper, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if renewer == nil {
		return nil, ErrRenewerNil
	}

	cfg.applyDefaults()

	s := &Sweeper{
		cfg:     cfg,
		store:   store,
		renewer: renewer,
		alerter: NewLogAlerter(nil),
		status:  tenant.NopStatusCache{},
		log:     logger.NewDiscard(),
		now:     time.Now,
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sweep walks every certificate-enabled tenant once. A failing tenant is
// logged and counted but never aborts the walk.
func (s *Sweeper) Sweep(ctx context.Context) SweepStats {
	started := s.now()

	states, err := s.store.ListCertificateEnabled(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "renewal sweep could not list tenants", logger.Error(err))
		return SweepStats{Duration: s.now().Sub(started)}
	}

	var stats SweepStats
	for _, state := range states {
		if ctx.Err() != nil {
			break
		}
		s.sweepTenant(ctx, state, &stats)
	}

	stats.Duration = s.now().Sub(started)
	s.log.InfoContext(ctx, "renewal sweep completed",
		logger.Count("checked", stats.Checked),
		slog.Int("renewed", stats.Renewed),
		slog.Int("alerted", stats.Alerted),
		slog.Int("failed", stats.Failed),
		slog.Int("skipped", stats.Skipped),
		logger.Duration(stats.Duration))

	return stats
}

// sweepTenant handles a single tenant with panic isolation, so one broken
// integration cannot take the loop down with it.
func (s *Sweeper) sweepTenant(ctx context.Context, state *tenant.State, stats *SweepStats) {
	defer func() {
		if r := recover(); r != nil {
			stats.Failed++
			s.log.ErrorContext(ctx, "renewal panic recovered",
				logger.TenantID(state.TenantID.String()),
				logger.Domain(state.Domain),
				slog.Any("panic", r))
		}
	}()

	stats.Checked++

	if state.Domain == "" {
		stats.Skipped++
		s.log.WarnContext(ctx, "certificate-enabled tenant has no domain, skipping",
			logger.TenantID(state.TenantID.String()))
		return
	}

	expiry, ok := s.resolveExpiry(ctx, state)
	if !ok {
		stats.Skipped++
		return
	}

	now := s.now()
	daysLeft := int(expiry.Sub(now).Hours() / 24)

	if daysLeft <= s.cfg.CriticalAlertDays {
		s.alert(ctx, state, expiry, daysLeft, SeverityCritical, stats)
	} else if daysLeft <= s.cfg.InfoAlertDays {
		s.alert(ctx, state, expiry, daysLeft, SeverityInfo, stats)
	}

	if daysLeft > s.cfg.RenewWithinDays {
		return
	}

	s.renewTenant(ctx, state, expiry, daysLeft, stats)
}

// resolveExpiry prefers the expiry read back from the certificate file over
// the persisted value.
func (s *Sweeper) resolveExpiry(ctx context.Context, state *tenant.State) (time.Time, bool) {
	if s.expiry != nil {
		expiry, err := s.expiry.Expiry(state.Domain)
		if err == nil {
			return expiry, true
		}
		s.log.WarnContext(ctx, "could not read certificate expiry from disk",
			logger.TenantID(state.TenantID.String()),
			logger.Domain(state.Domain),
			logger.Error(err))
	}

	if state.SSLExpiry == nil {
		s.log.WarnContext(ctx, "certificate-enabled tenant has no recorded expiry, skipping",
			logger.TenantID(state.TenantID.String()),
			logger.Domain(state.Domain))
		return time.Time{}, false
	}
	return *state.SSLExpiry, true
}

func (s *Sweeper) alert(ctx context.Context, state *tenant.State, expiry time.Time, daysLeft int, severity Severity, stats *SweepStats) {
	err := s.alerter.CertificateExpiring(ctx, Alert{
		TenantID:     state.TenantID,
		Domain:       state.Domain,
		ContactEmail: state.ContactEmail,
		Expiry:       expiry,
		DaysLeft:     daysLeft,
		Severity:     severity,
	})
	if err != nil {
		s.log.WarnContext(ctx, "expiry alert delivery failed",
			logger.TenantID(state.TenantID.String()),
			logger.Domain(state.Domain),
			logger.Error(err))
		return
	}
	stats.Alerted++
}

// renewTenant retries up to the configured attempts with a fixed delay.
// Missing DNS credentials short-circuit the retries since no retry can fix
// them. Exhausting the budget raises a renewal-failure alert.
func (s *Sweeper) renewTenant(ctx context.Context, state *tenant.State, expiry time.Time, daysLeft int, stats *SweepStats) {
	email := state.ContactEmail
	if email == "" {
		email = s.cfg.DefaultContactEmail
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		res, err := s.renewer.IssueOrRenew(ctx, state.Domain, email)
		if err == nil {
			if err := s.store.EnableCertificate(ctx, state.TenantID, res.CertPath, res.KeyPath, res.Expiry); err != nil {
				lastErr = err
				break
			}
			_ = s.status.ClearFailure(ctx, state.TenantID)
			stats.Renewed++
			s.log.InfoContext(ctx, "certificate renewed",
				logger.TenantID(state.TenantID.String()),
				logger.Domain(state.Domain),
				slog.Time("expiry", res.Expiry),
				logger.RetryCount(attempt-1))
			return
		}

		lastErr = err
		s.log.WarnContext(ctx, "renewal attempt failed",
			logger.TenantID(state.TenantID.String()),
			logger.Domain(state.Domain),
			slog.Int("attempt", attempt),
			slog.Int("days_left", daysLeft),
			logger.Error(err))

		if errors.Is(err, certificate.ErrCredentialMissing) {
			break
		}
		if attempt < s.cfg.MaxRetries {
			if err := s.sleep(ctx, s.cfg.RetryDelay); err != nil {
				break
			}
		}
	}

	stats.Failed++
	reason := fmt.Sprintf("renewal failed: %v", lastErr)
	_ = s.status.SetFailure(ctx, state.TenantID, reason)
	s.log.ErrorContext(ctx, "certificate renewal exhausted",
		logger.TenantID(state.TenantID.String()),
		logger.Domain(state.Domain),
		logger.Error(lastErr))

	err := s.alerter.RenewalFailed(ctx, Alert{
		TenantID:     state.TenantID,
		Domain:       state.Domain,
		ContactEmail: state.ContactEmail,
		Expiry:       expiry,
		DaysLeft:     daysLeft,
		Severity:     SeverityCritical,
		Reason:       reason,
	})
	if err != nil {
		s.log.WarnContext(ctx, "renewal failure alert delivery failed",
			logger.TenantID(state.TenantID.String()),
			logger.Domain(state.Domain),
			logger.Error(err))
		return
	}
	stats.Alerted++
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
