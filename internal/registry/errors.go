package registry

// notFoundError signals a key the registry does not know.
type notFoundError struct{ key string }

func (e notFoundError) Error() string { return "model not found: " + e.key }

// ErrNotFound returns an error for a key absent from the registry.
func ErrNotFound(key string) error { return notFoundError{key: key} }

// IsNotFound reports whether err indicates an unknown model key.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// unauthorizedError signals a gated model without credentials.
type unauthorizedError struct{ key string }

func (e unauthorizedError) Error() string { return "unauthorized for model: " + e.key }

// ErrUnauthorized constructs an unauthorizedError.
func ErrUnauthorized(key string) error { return unauthorizedError{key: key} }

// IsUnauthorized reports whether err indicates missing registry credentials.
func IsUnauthorized(err error) bool {
	_, ok := err.(unauthorizedError)
	return ok
}

// fetchError carries a retryable/non-retryable classification so callers can
// decide between backoff and operator intervention.
type fetchError struct {
	key       string
	reason    string
	retryable bool
}

func (e fetchError) Error() string { return "fetch failed for " + e.key + ": " + e.reason }

// ErrFetchFailed constructs a fetchError.
func ErrFetchFailed(key, reason string, retryable bool) error {
	return fetchError{key: key, reason: reason, retryable: retryable}
}

// IsFetchFailed reports whether err is a download/storage failure.
func IsFetchFailed(err error) bool {
	_, ok := err.(fetchError)
	return ok
}

// IsRetryable reports whether a fetch failure is worth retrying with backoff.
// Disk-full and checksum mismatches are not; transient network errors are.
func IsRetryable(err error) bool {
	fe, ok := err.(fetchError)
	return ok && fe.retryable
}
