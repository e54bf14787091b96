package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func transientErr() error {
	return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 3, Backoff: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return transientErr()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	perm := errors.New("unique violation")
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 5, Backoff: time.Millisecond}, func() error {
		calls++
		return perm
	})
	if !errors.Is(err, perm) {
		t.Fatalf("err = %v, want %v", err, perm)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 3, Backoff: time.Millisecond}, func() error {
		calls++
		return transientErr()
	})
	if !IsTransient(err) {
		t.Fatalf("err = %v, want transient", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"40001", true},
		{"40P01", true},
		{"55P03", true},
		{"23505", false},
	}
	for _, tc := range cases {
		err := &pgconn.PgError{Code: tc.code}
		if got := IsTransient(err); got != tc.want {
			t.Fatalf("IsTransient(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}
	if IsTransient(errors.New("plain")) {
		t.Fatalf("plain error reported transient")
	}
}
