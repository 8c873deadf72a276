package residency

import "fmt"

// insufficientCapacityError signals that no feasible eviction set exists.
// Fatal for the request; not retried internally.
type insufficientCapacityError struct {
	key       string
	required  uint64
	available uint64
}

func (e insufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity for %s: need %d bytes, %d available after eviction",
		e.key, e.required, e.available)
}

// ErrInsufficientCapacity constructs an insufficientCapacityError.
func ErrInsufficientCapacity(key string, required, available uint64) error {
	return insufficientCapacityError{key: key, required: required, available: available}
}

// IsInsufficientCapacity reports whether err means no eviction set could
// free enough room.
func IsInsufficientCapacity(err error) bool {
	_, ok := err.(insufficientCapacityError)
	return ok
}

// loadFailedError signals a device-load failure. diskSide marks corrupt
// weights on disk (the cache entry is invalidated); device-side faults keep
// the disk cache so a later attempt skips the fetch.
type loadFailedError struct {
	key      string
	reason   string
	diskSide bool
}

func (e loadFailedError) Error() string { return "load failed for " + e.key + ": " + e.reason }

// ErrLoadFailed constructs a device-side load failure.
func ErrLoadFailed(key, reason string) error {
	return loadFailedError{key: key, reason: reason}
}

// ErrCorruptWeights constructs a disk-side load failure.
func ErrCorruptWeights(key, reason string) error {
	return loadFailedError{key: key, reason: reason, diskSide: true}
}

// IsLoadFailed reports whether err is a load-time failure.
func IsLoadFailed(err error) bool {
	_, ok := err.(loadFailedError)
	return ok
}

func isDiskSideLoadFailure(err error) bool {
	le, ok := err.(loadFailedError)
	return ok && le.diskSide
}

// timeoutError signals a bounded-wait violation on fetch or load, distinct
// from FetchFailed/LoadFailed.
type timeoutError struct {
	key string
	op  string
}

func (e timeoutError) Error() string { return e.op + " timed out for " + e.key }

// ErrTimeout constructs a timeoutError.
func ErrTimeout(key, op string) error { return timeoutError{key: key, op: op} }

// IsTimeout reports whether err is a fetch/load timeout.
func IsTimeout(err error) bool {
	_, ok := err.(timeoutError)
	return ok
}

// invariantViolationError indicates a concurrency bug (ref count underflow,
// double transition). Fatal for the affected request; never recovered from.
type invariantViolationError struct{ msg string }

func (e invariantViolationError) Error() string { return "invariant violation: " + e.msg }

// ErrInvariantViolation constructs an invariantViolationError.
func ErrInvariantViolation(msg string) error { return invariantViolationError{msg: msg} }

// IsInvariantViolation reports whether err indicates a programming error in
// the residency protocol.
func IsInvariantViolation(err error) bool {
	_, ok := err.(invariantViolationError)
	return ok
}
