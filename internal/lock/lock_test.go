package lock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLocalLockerExclusion(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "merge:ENCAR", time.Second)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	_, err = l.Acquire(ctx, "merge:ENCAR", 50*time.Millisecond)
	if !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("second acquire err = %v, want ErrNotAcquired", err)
	}

	if err := release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	release2, err := l.Acquire(ctx, "merge:ENCAR", time.Second)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	_ = release2()
}

func TestLocalLockerIndependentNames(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	r1, err := l.Acquire(ctx, "merge:ENCAR", time.Second)
	if err != nil {
		t.Fatalf("acquire ENCAR: %v", err)
	}
	defer r1()

	r2, err := l.Acquire(ctx, "merge:KCAR", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire KCAR while ENCAR held: %v", err)
	}
	_ = r2()
}

func TestKeyForStable(t *testing.T) {
	a := keyFor("merge:ENCAR")
	b := keyFor("merge:ENCAR")
	if a != b {
		t.Fatalf("keyFor not stable: %d != %d", a, b)
	}
	if a == keyFor("merge:KCAR") {
		t.Fatalf("distinct names hash to same key")
	}
}
