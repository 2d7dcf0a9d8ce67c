package retry

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/kris-hansen/tagup/utils/config"
)

// Config holds configuration for retry operations
type Config struct {
	MaxRetries  int           // Maximum number of retry attempts
	InitialWait time.Duration // Initial wait time before first retry
	MaxWait     time.Duration // Maximum wait time between retries
	Factor      float64       // Exponential backoff factor
}

// DefaultConfig is used by backends that enable retries without further tuning
var DefaultConfig = Config{
	MaxRetries:  3,
	InitialWait: 1 * time.Second,
	MaxWait:     30 * time.Second,
	Factor:      2.0,
}

// WithMaxRetries returns a copy of c with MaxRetries replaced
func (c Config) WithMaxRetries(n int) Config {
	c.MaxRetries = n
	return c
}

// Do runs operation until it succeeds, returns an error rejected by
// shouldRetry, runs out of attempts or ctx is done.
func Do[T any](ctx context.Context, cfg Config, shouldRetry func(error) bool, operation func() (T, error)) (T, error) {
	var zero T
	wait := cfg.InitialWait

	for attempt := 0; ; attempt++ {
		result, err := operation()
		if err == nil || !shouldRetry(err) {
			return result, err
		}
		if attempt >= cfg.MaxRetries {
			if cfg.MaxRetries == 0 {
				return zero, err
			}
			return zero, fmt.Errorf("operation failed after %d retries: %w", cfg.MaxRetries, err)
		}

		retryWait := time.Duration(math.Min(float64(wait), float64(cfg.MaxWait)))
		if hinted := extractRetryTime(err.Error()); hinted > 0 {
			retryWait = hinted
		}

		config.DebugLog("[Retry] retryable error: %v. Retrying in %v (attempt %d/%d)",
			err, retryWait, attempt+1, cfg.MaxRetries)
		config.VerboseLog("Rate limit detected, retrying in %v (attempt %d/%d)",
			retryWait, attempt+1, cfg.MaxRetries)

		timer := time.NewTimer(retryWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		wait = time.Duration(float64(wait) * cfg.Factor)
	}
}

// Is429Error checks if the error is a rate limit (429) error
func Is429Error(err error) bool {
	if err == nil {
		return false
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "429") ||
		strings.Contains(errMsg, "rate limit") ||
		strings.Contains(errMsg, "quota exceeded") ||
		strings.Contains(errMsg, "too many requests")
}

var upstreamStatus = regexp.MustCompile(`status(?: code)?:? (502|503|504)\b`)

// IsRetryable reports rate limits and temporary upstream failures
func IsRetryable(err error) bool {
	if Is429Error(err) {
		return true
	}
	if err == nil {
		return false
	}
	return upstreamStatus.MatchString(err.Error())
}

// extractRetryTime pulls a wait hint like "retry in 18s" out of an error
// message. Returns 0 when there is none.
func extractRetryTime(errMsg string) time.Duration {
	patterns := []string{
		"retry in ",
		"retry after ",
		"try again in ",
		"try again after ",
	}

	lower := strings.ToLower(errMsg)
	for _, pattern := range patterns {
		idx := strings.Index(lower, pattern)
		if idx < 0 {
			continue
		}
		rest := lower[idx+len(pattern):]

		var seconds int
		if _, err := fmt.Sscanf(rest, "%ds", &seconds); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if _, err := fmt.Sscanf(rest, "%d seconds", &seconds); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}
