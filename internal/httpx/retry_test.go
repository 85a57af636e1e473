package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ytscout/internal/errs"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2.0}
}

func TestRetryDoSucceedsAfterTransientFailures(t *testing.T) {
	var calls int32
	result, err := RetryDo(context.Background(), fastRetry(), func() (string, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return "", &httpStatusError{StatusCode: http.StatusBadGateway}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" || calls != 3 {
		t.Fatalf("result=%q calls=%d", result, calls)
	}
}

func TestRetryDoStopsOnNonRetryable(t *testing.T) {
	var calls int32
	permanent := errors.New("bad input")
	_, err := RetryDo(context.Background(), fastRetry(), func() (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single attempt, got %d", calls)
	}
}

func TestRetryDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RetryDo(ctx, fastRetry(), func() (int, error) {
		return 0, &httpStatusError{StatusCode: http.StatusServiceUnavailable}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRetryHTTPRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := RetryHTTP(context.Background(), fastRetry(), func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		if err != nil {
			return nil, err
		}
		return DefaultClient.Do(req)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestTooManyRequestsClassifiedAsRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := RetryHTTP(context.Background(), RetryConfig{MaxRetries: 1, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1}, func() (*http.Response, error) {
		req, reqErr := http.NewRequest(http.MethodGet, server.URL, nil)
		if reqErr != nil {
			return nil, reqErr
		}
		return DefaultClient.Do(req)
	})
	if !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("expected rate-limited classification, got %v", err)
	}
}
