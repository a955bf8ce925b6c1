package sdk

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mbarden/leadwire/internals/timeouts"
)

const (
	DefaultPingTimeout = timeouts.Probe
	startInitialDelay  = 500 * time.Millisecond
	startAttempts      = 6
)

type InfoLogger interface {
	Info(msg string, args ...any)
}

func IsRunning(baseURL string) bool {
	return IsRunningWithTimeout(baseURL, DefaultPingTimeout)
}

func IsRunningWithTimeout(baseURL string, timeout time.Duration) bool {
	if baseURL == "" {
		return false
	}
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	client := NewClient(
		WithBaseURL(baseURL),
		WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	_, err := client.Version(ctx)
	return err == nil
}

var errNotRunning = errors.New("server not running")

func WaitForStart(baseURL string, logger InfoLogger) bool {
	backoff := retry.WithMaxRetries(startAttempts, retry.NewExponential(startInitialDelay))

	attempt := 0
	err := retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		if logger != nil {
			logger.Info("Waiting for server to start", "attempt", attempt)
		}
		attempt++
		if IsRunning(baseURL) {
			return nil
		}
		return retry.RetryableError(errNotRunning)
	})
	return err == nil
}
