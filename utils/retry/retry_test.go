package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fast = Config{MaxRetries: 3, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond, Factor: 2}

func TestDoRetriesRateLimits(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fast, Is429Error, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("status 429: too many requests")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	_, err := Do(context.Background(), fast, Is429Error, func() (int, error) {
		calls++
		return 0, permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoGivesUp(t *testing.T) {
	limited := errors.New("rate limit")
	calls := 0
	_, err := Do(context.Background(), fast, Is429Error, func() (int, error) {
		calls++
		return 0, limited
	})
	assert.ErrorIs(t, err, limited)
	assert.Equal(t, fast.MaxRetries+1, calls)
}

func TestDoZeroRetriesReturnsErrorUnwrapped(t *testing.T) {
	limited := errors.New("rate limit")
	_, err := Do(context.Background(), fast.WithMaxRetries(0), Is429Error, func() (int, error) {
		return 0, limited
	})
	assert.Equal(t, limited, err)
}

func TestDoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := Config{MaxRetries: 2, InitialWait: time.Hour, MaxWait: time.Hour, Factor: 1}
	_, err := Do(ctx, slow, Is429Error, func() (int, error) {
		return 0, errors.New("429")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractRetryTime(t *testing.T) {
	tests := []struct {
		msg  string
		want time.Duration
	}{
		{"quota exceeded, retry in 18s", 18 * time.Second},
		{"Please try again after 30 seconds", 30 * time.Second},
		{"nothing useful", 0},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, extractRetryTime(tt.msg))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(errors.New("backend returned status 503")))
	assert.True(t, IsRetryable(errors.New("error, status code: 502, status: 502 Bad Gateway, message: upstream")))
	assert.True(t, IsRetryable(errors.New("Too Many Requests")))
	assert.False(t, IsRetryable(errors.New("status 400")))
	assert.False(t, IsRetryable(nil))
}
