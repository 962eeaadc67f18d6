package certificate

import "errors"

var (
	// ErrCredentialMissing is returned when the DNS provider API credential is
	// not configured. Operator action is required; automatic retries are
	// pointless until the credential is supplied.
	ErrCredentialMissing = errors.New("dns provider credential is not configured")

	// ErrChallengePublishFailed is returned when the DNS-01 challenge record
	// could not be published through the DNS provider API.
	ErrChallengePublishFailed = errors.New("failed to publish dns-01 challenge")

	// ErrIssuanceFailed is returned when the ACME flow itself fails.
	ErrIssuanceFailed = errors.New("certificate issuance failed")

	// ErrCertificateInvalid is returned when the issued or on-disk certificate
	// is missing, unparsable or outside its validity window.
	ErrCertificateInvalid = errors.New("certificate is invalid")

	// ErrOperationInProgress is returned when issuance for the same domain is
	// already running. Callers should back off and retry later.
	ErrOperationInProgress = errors.New("certificate operation already in progress for domain")

	// ErrEmptyDomain is returned when the domain argument is empty.
	ErrEmptyDomain = errors.New("domain is required")

	// ErrEmailRequired is returned when no ACME contact email is provided.
	ErrEmailRequired = errors.New("contact email is required")
)
