package retry

import (
	"context"
	"errors"
	"io"
	"math"
	"net"
	"syscall"
	"time"
)

/*
	Retry utils with following feature:
	- exponential backoff
	- jitter
	- max attempts
	- max timeout

	Retries up to either MaxAttempts or till Timeout or RetryOn returns false. The time interval between the i-th and (i+1)-th
	attempt is `min( BaseDelay * ( Exp ^ i + Jitter ), MaxBackoff )`
*/

// Fn is the function to retry
type Fn func() error

// RetryOnFn decides whether to retry on given error
type RetryOnFn func(error) bool

type retryConfig struct {
	MaxAttempts int64         // maximum number of retries after the first call
	MaxBackoff  time.Duration // maximum wait time before next attempt
	Timeout     time.Duration // zero value means no timeout
	Jitter      float64
	BaseDelay   time.Duration
	Exp         float64
	RetryOn     RetryOnFn
}

type RetryOption func(*retryConfig)

func defaultRetryConfig() *retryConfig {
	return &retryConfig{
		MaxAttempts: math.MaxInt64,
		MaxBackoff:  time.Duration(math.MaxInt64),
		Exp:         1,
		RetryOn:     func(error) bool { return false },
	}
}

func WithMaxAttempts(a int64) RetryOption {
	return func(c *retryConfig) {
		c.MaxAttempts = a
	}
}

func WithTimeout(t time.Duration) RetryOption {
	return func(c *retryConfig) {
		c.Timeout = t
	}
}

func WithJitter(j float64) RetryOption {
	return func(c *retryConfig) {
		c.Jitter = j
	}
}

func WithBaseDelay(t time.Duration) RetryOption {
	return func(c *retryConfig) {
		c.BaseDelay = t
	}
}

func WithExp(e float64) RetryOption {
	return func(c *retryConfig) {
		c.Exp = e
	}
}

func WithRetryOn(f RetryOnFn) RetryOption {
	return func(c *retryConfig) {
		c.RetryOn = f
	}
}

func WithMaxBackoff(b time.Duration) RetryOption {
	return func(c *retryConfig) {
		c.MaxBackoff = b
	}
}

// Retry calls f until it returns an error RetryOn rejects, or retries are exhausted. It returns the last
// error from f, or ErrRetryTimedOut.
func Retry(f Fn, opts ...RetryOption) error {
	return RetryContext(context.Background(), f, opts...)
}

// RetryContext is Retry which also gives up once ctx is done.
func RetryContext(ctx context.Context, f Fn, opts ...RetryOption) error {
	cfg := defaultRetryConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	// fire f first in case it doesn't need retry at all
	err := f()
	if !cfg.RetryOn(err) {
		return err
	}
	// receive from nil chan always block, representing no timeout
	var timeout <-chan time.Time
	if cfg.Timeout != 0 {
		// note that a timer fires immediately if created with a non-positive duration
		t := time.NewTimer(cfg.Timeout)
		defer t.Stop()
		timeout = t.C
	}
	var i int64
	for ; i < cfg.MaxAttempts; i++ {
		factor := math.Pow(cfg.Exp, float64(i)) + cfg.Jitter
		// cap the delay to the max of time.Duration, which is ~290 years
		delay := time.Duration(math.Min(float64(cfg.BaseDelay.Nanoseconds())*factor, math.MaxInt64))
		if delay > cfg.MaxBackoff {
			delay = cfg.MaxBackoff
		}
		t := time.NewTimer(delay)
		select {
		case <-t.C:
			err = f()
			if !cfg.RetryOn(err) {
				return err
			}
		case <-timeout:
			t.Stop()
			return ErrRetryTimedOut
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return err
}

// IsDepOffline reports whether err looks like the dependency is not reachable (yet).
func IsDepOffline(err error) bool {
	if err == nil {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, io.EOF)
}

type errRetry string

func (e errRetry) Error() string {
	return string(e)
}

const ErrRetryTimedOut errRetry = "retry timed out"
