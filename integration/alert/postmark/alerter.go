package postmark

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/mrz1836/postmark"

	"github.com/hiredeck/domainkit/core/renewal"
)

var (
	// ErrInvalidConfig is returned when required settings are missing.
	ErrInvalidConfig = errors.New("invalid postmark config")

	// ErrFailedToSendAlert wraps delivery failures.
	ErrFailedToSendAlert = errors.New("failed to send expiry alert")
)

// Config holds Postmark credentials and addressing.
type Config struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN,required"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN,required"`

	// SenderEmail is the verified From address.
	SenderEmail string `env:"ALERT_SENDER_EMAIL,required"`

	// OpsEmail receives alerts for tenants without a contact on file and is
	// the Reply-To on every alert.
	OpsEmail string `env:"ALERT_OPS_EMAIL,required"`
}

// Alerter implements renewal.Alerter over Postmark.
type Alerter struct {
	client *postmark.Client
	cfg    Config
}

// New creates a Postmark-backed expiry alerter. All settings are required so
// a misconfigured alerter fails at startup, not at 2am when the first
// certificate nears expiry.
func New(cfg Config) (*Alerter, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: ServerToken is required", ErrInvalidConfig)
	}
	if cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: AccountToken is required", ErrInvalidConfig)
	}
	if !isValidEmail(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	if !isValidEmail(cfg.OpsEmail) {
		return nil, fmt.Errorf("%w: OpsEmail must be a valid email address", ErrInvalidConfig)
	}

	return &Alerter{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		cfg:    cfg,
	}, nil
}

// CertificateExpiring sends one expiry alert email.
func (a *Alerter) CertificateExpiring(ctx context.Context, alert renewal.Alert) error {
	to := alert.ContactEmail
	if !isValidEmail(to) {
		to = a.cfg.OpsEmail
	}

	tag := "cert-expiry-info"
	subject := fmt.Sprintf("Certificate for %s expires in %d days", alert.Domain, alert.DaysLeft)
	if alert.Severity == renewal.SeverityCritical {
		tag = "cert-expiry-critical"
		subject = fmt.Sprintf("URGENT: certificate for %s expires in %d days", alert.Domain, alert.DaysLeft)
	}

	return a.send(ctx, to, subject, tag, alertBody(alert))
}

// RenewalFailed notifies that automatic renewal exhausted its retry budget
// and the certificate will lapse without manual intervention.
func (a *Alerter) RenewalFailed(ctx context.Context, alert renewal.Alert) error {
	to := alert.ContactEmail
	if !isValidEmail(to) {
		to = a.cfg.OpsEmail
	}

	subject := fmt.Sprintf("ACTION REQUIRED: certificate renewal for %s is failing", alert.Domain)
	return a.send(ctx, to, subject, "cert-renewal-failed", failureBody(alert))
}

func (a *Alerter) send(ctx context.Context, to, subject, tag, body string) error {
	resp, err := a.client.SendEmail(ctx, postmark.Email{
		From:     a.cfg.SenderEmail,
		ReplyTo:  a.cfg.OpsEmail,
		To:       to,
		Subject:  subject,
		Tag:      tag,
		TextBody: body,
	})
	if err != nil {
		return errors.Join(ErrFailedToSendAlert, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToSendAlert,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}

func alertBody(alert renewal.Alert) string {
	return fmt.Sprintf(
		"The TLS certificate for %s expires on %s (%d days from now).\n\n"+
			"Automatic renewal is scheduled. If this alert repeats with fewer days "+
			"remaining, renewal is failing and needs attention.\n",
		alert.Domain, alert.Expiry.Format(time.RFC1123), alert.DaysLeft)
}

func failureBody(alert renewal.Alert) string {
	return fmt.Sprintf(
		"Automatic renewal of the TLS certificate for %s has failed after "+
			"repeated attempts.\n\n"+
			"Last error: %s\n\n"+
			"The current certificate expires on %s (%d days from now). Manual "+
			"intervention is needed before then.\n",
		alert.Domain, alert.Reason, alert.Expiry.Format(time.RFC1123), alert.DaysLeft)
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
