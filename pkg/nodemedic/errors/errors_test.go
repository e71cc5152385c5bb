package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize_HTTPErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   Category
	}{
		{"server error", 500, CategoryTransient},
		{"bad gateway", 502, CategoryTransient},
		{"service unavailable", 503, CategoryTransient},
		{"bad request", 400, CategoryPermanent},
		{"unauthorized", 401, CategoryPermanent},
		{"not found", 404, CategoryPermanent},
		{"rate limited", 429, CategoryPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &HTTPError{StatusCode: tt.status, Message: "boom"}
			assert.Equal(t, tt.want, Categorize(err))
		})
	}
}

func TestCategorize_TemplateError(t *testing.T) {
	err := &TemplateError{Part: "headers", Err: errors.New("unexpected end of input")}
	assert.Equal(t, CategoryConfig, Categorize(err))
	assert.True(t, IsConfig(err))
	assert.False(t, IsRetryable(err))
}

func TestCategorize_TransportErrors(t *testing.T) {
	dnsErr := &net.DNSError{Err: "no such host", Name: "api.example.com"}
	assert.Equal(t, CategoryTransient, Categorize(dnsErr))

	opErr := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	assert.Equal(t, CategoryTransient, Categorize(opErr))
}

func TestCategorize_WrappedError(t *testing.T) {
	inner := &HTTPError{StatusCode: 503, Message: "overloaded"}
	wrapped := fmt.Errorf("call backend: %w", inner)
	assert.Equal(t, CategoryTransient, Categorize(wrapped))
}

func TestCategorize_ContextErrors(t *testing.T) {
	assert.Equal(t, CategoryPermanent, Categorize(context.Canceled))
	assert.Equal(t, CategoryPermanent, Categorize(context.DeadlineExceeded))
}

func TestCategorize_JSONParseError(t *testing.T) {
	err := &JSONParseError{Input: `{"bad": }`, Message: "invalid character '}'"}
	assert.Equal(t, CategoryPermanent, Categorize(err))
	assert.False(t, IsRetryable(err))

	wrapped := fmt.Errorf("decode analysis: %w", err)
	assert.Equal(t, CategoryPermanent, Categorize(wrapped))
}

func TestCategorize_UnknownIsPermanent(t *testing.T) {
	assert.Equal(t, CategoryPermanent, Categorize(errors.New("mystery")))
	assert.Equal(t, CategoryPermanent, Categorize(nil))
}

func TestWithRetryContext_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result := WithRetryContext(context.Background(), DefaultRetry, func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, result.Err)
	assert.Equal(t, "ok", result.Value)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, calls)
}

func TestWithRetryContext_RetriesTransientThenSucceeds(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond}
	calls := 0
	result := WithRetryContext(context.Background(), cfg, func(context.Context) (string, error) {
		calls++
		if calls < 4 {
			return "", &HTTPError{StatusCode: 503, Message: "unavailable"}
		}
		return "payload", nil
	})

	require.NoError(t, result.Err)
	assert.Equal(t, "payload", result.Value)
	assert.Equal(t, 4, result.Attempts)
}

func TestWithRetryContext_AttemptsNeverExceedMaxRetriesPlusOne(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond}
	calls := 0
	result := WithRetryContext(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, &HTTPError{StatusCode: 500, Message: "boom"}
	})

	require.Error(t, result.Err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, result.Attempts)
}

func TestWithRetryContext_PermanentErrorStopsImmediately(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 5, InitialBackoff: time.Millisecond}
	calls := 0
	result := WithRetryContext(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, &HTTPError{StatusCode: 401, Message: "bad key"}
	})

	require.Error(t, result.Err)
	assert.Equal(t, 1, calls)

	var httpErr *HTTPError
	require.ErrorAs(t, result.Err, &httpErr)
	assert.Equal(t, 401, httpErr.StatusCode)
}

func TestWithRetryContext_BackoffDoubles(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialBackoff: 10 * time.Millisecond}
	var timestamps []time.Time
	result := WithRetryContext(context.Background(), cfg, func(context.Context) (int, error) {
		timestamps = append(timestamps, time.Now())
		return 0, &HTTPError{StatusCode: 500, Message: "boom"}
	})

	require.Error(t, result.Err)
	require.Len(t, timestamps, 4)

	// Gaps should be roughly 10ms, 20ms, 40ms. Allow generous slack but
	// verify each gap is at least the scheduled delay.
	expected := 10 * time.Millisecond
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		assert.GreaterOrEqual(t, gap, expected, "gap %d", i)
		expected *= 2
	}
}

func TestWithRetryContext_MaxBackoffCaps(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 4, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
	start := time.Now()
	result := WithRetryContext(context.Background(), cfg, func(context.Context) (int, error) {
		return 0, &HTTPError{StatusCode: 500, Message: "boom"}
	})

	require.Error(t, result.Err)
	// 1 + 2 + 2 + 2 = 7ms of backoff; far below the uncapped 1+2+4+8.
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestWithRetryContext_CancelledBeforeAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	result := WithRetryContext(ctx, DefaultRetry, func(context.Context) (int, error) {
		calls++
		return 0, nil
	})

	require.Error(t, result.Err)
	assert.Equal(t, 0, calls)
	assert.Equal(t, CategoryPermanent, Categorize(result.Err))
}

func TestWithRetryContext_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 3, InitialBackoff: time.Minute}

	done := make(chan RetryResult[int])
	go func() {
		done <- WithRetryContext(ctx, cfg, func(context.Context) (int, error) {
			return 0, &HTTPError{StatusCode: 500, Message: "boom"}
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case result := <-done:
		require.Error(t, result.Err)
		assert.Equal(t, 1, result.Attempts)
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not honor cancellation during backoff")
	}
}
