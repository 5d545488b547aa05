package retry

import (
	"context"
	"errors"
	"time"
)

// VendorCoder is implemented by errors carrying a numeric server error code
type VendorCoder interface {
	VendorCode() int
}

// ErrorCodeWaitStrategy retries errors with selected vendor codes, such as
// lock wait timeouts or too many connections, after waiting an interval.
type ErrorCodeWaitStrategy struct {
	codes    map[int]struct{}
	interval time.Duration
}

// NewErrorCodeWaitStrategy creates a strategy for codes. A zero interval
// retries immediately.
func NewErrorCodeWaitStrategy(codes []int, interval time.Duration) *ErrorCodeWaitStrategy {
	set := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return &ErrorCodeWaitStrategy{codes: set, interval: interval}
}

// ShouldRetry returns true when err carries one of the codes. The wait is
// cut short, and false returned, if ctx is done first.
func (s *ErrorCodeWaitStrategy) ShouldRetry(ctx context.Context, err error, _ int) bool {
	var coded VendorCoder
	if !errors.As(err, &coded) {
		return false
	}
	if _, ok := s.codes[coded.VendorCode()]; !ok {
		return false
	}
	if s.interval <= 0 {
		return true
	}

	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
