// Package certificate turns a verified custom domain into an installed TLS
// certificate bundle using an ACME DNS-01 flow.
//
// The Manager owns the on-disk bundle layout (one directory per domain with
// cert.pem, privkey.pem and fullchain.pem), validates issued material before
// anything is persisted, and serializes issuance per domain so a manual
// "retry now" and the background renewal sweep never race.
//
// The ACME client and the DNS-01 challenge publisher are injected as
// interfaces, so tests run without network access:
//
//	manager, err := certificate.NewManager(cfg,
//		certificate.WithPublisherFactory(cloudflare.NewPublisher),
//	)
//	res, err := manager.IssueOrRenew(ctx, "jobs.acme.com", "ops@hiredeck.com")
//
// Expected failures are classified by sentinel errors (ErrCredentialMissing,
// ErrChallengePublishFailed, ErrIssuanceFailed, ErrCertificateInvalid,
// ErrOperationInProgress) and never panic the caller. ErrCredentialMissing
// requires operator action and should suppress automatic retries.
package certificate
