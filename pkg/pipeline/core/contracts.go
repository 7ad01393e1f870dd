// Package core holds the error contracts shared by provider clients and the
// worker pool's retry logic.
package core

// TransientError marks an error as retryable by worker implementations.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LimitedTransientError marks an error as retryable with a cap on extra
// attempts tighter than the pool-wide retry budget. Rate-limit responses use
// this so a saturated upstream is not hammered for the full budget.
type LimitedTransientError struct {
	Err        error
	RetryLimit int
}

func (e *LimitedTransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *LimitedTransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// MaxExtraRetries reports the retry cap carried by the error.
func (e *LimitedTransientError) MaxExtraRetries() int {
	if e == nil || e.RetryLimit < 0 {
		return 0
	}
	return e.RetryLimit
}
