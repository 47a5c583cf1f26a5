package asyncx

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAllSettledPreservesOrderAndErrors(t *testing.T) {
	boom := errors.New("boom")
	results := AllSettled(context.Background(),
		func(_ context.Context) (string, error) { return "first", nil },
		func(_ context.Context) (string, error) { return "", boom },
		func(_ context.Context) (string, error) {
			time.Sleep(10 * time.Millisecond)
			return "slow", nil
		},
	)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if !results[0].OK() || results[0].Value != "first" {
		t.Fatalf("result 0: %+v", results[0])
	}
	if results[1].OK() || !errors.Is(results[1].Err, boom) {
		t.Fatalf("result 1: %+v", results[1])
	}
	if !results[2].OK() || results[2].Value != "slow" {
		t.Fatalf("result 2: %+v", results[2])
	}
}

func TestRetryWithBackoffSucceedsAfterFailures(t *testing.T) {
	calls := 0
	val, err := RetryWithBackoff(context.Background(), 5, time.Millisecond,
		func(_ context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("not yet")
			}
			return 42, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 42 || calls != 3 {
		t.Fatalf("got val=%d calls=%d, want 42 after 3 calls", val, calls)
	}
}

func TestRetryWithBackoffReturnsLastError(t *testing.T) {
	last := errors.New("still broken")
	calls := 0
	_, err := RetryWithBackoff(context.Background(), 3, time.Millisecond,
		func(_ context.Context) (int, error) {
			calls++
			return 0, last
		})
	if !errors.Is(err, last) {
		t.Fatalf("got %v, want last error", err)
	}
	if calls != 3 {
		t.Fatalf("got %d calls, want 3", calls)
	}
}

func TestRetryWithBackoffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := RetryWithBackoff(ctx, 10, time.Minute,
		func(_ context.Context) (int, error) {
			calls++
			cancel()
			return 0, errors.New("fail")
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("got %d calls, want 1", calls)
	}
}
