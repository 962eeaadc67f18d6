package renewal

import "errors"

var (
	// ErrStoreNil is returned when no tenant store is provided.
	ErrStoreNil = errors.New("tenant store is nil")

	// ErrRenewerNil is returned when no certificate renewer is provided.
	ErrRenewerNil = errors.New("certificate renewer is nil")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("renewal scheduler already started")

	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = errors.New("renewal scheduler not started")

	// ErrHealthcheckFailed wraps healthcheck failures.
	ErrHealthcheckFailed = errors.New("renewal scheduler healthcheck failed")

	// ErrSchedulerNotRunning indicates the sweep loop is not active.
	ErrSchedulerNotRunning = errors.New("renewal scheduler is not running")
)
