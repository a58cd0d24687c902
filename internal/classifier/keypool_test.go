package classifier

import (
	"errors"
	"testing"
	"time"

	"latex-editor/internal/types"
)

func TestNewKeyPool(t *testing.T) {
	t.Run("requires at least one key", func(t *testing.T) {
		_, err := NewKeyPool(nil, time.Minute)
		var appErr *types.AppError
		if !errors.As(err, &appErr) || appErr.Code != types.ErrConfig {
			t.Fatalf("expected CONFIG_ERROR, got %v", err)
		}
	})

	t.Run("requires positive cooldown", func(t *testing.T) {
		_, err := NewKeyPool([]string{"k"}, 0)
		if err == nil {
			t.Fatal("expected error for zero cooldown")
		}
	})
}

func TestKeyPool_RoundRobin(t *testing.T) {
	pool, err := NewKeyPool([]string{"a", "b", "c"}, time.Minute)
	if err != nil {
		t.Fatalf("NewKeyPool failed: %v", err)
	}

	var got []string
	for i := 0; i < 4; i++ {
		k, err := pool.Acquire()
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		got = append(got, k)
	}

	want := []string{"a", "b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("acquire %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestKeyPool_RateLimitSkipsSlot(t *testing.T) {
	pool, err := NewKeyPool([]string{"a", "b"}, time.Minute)
	if err != nil {
		t.Fatalf("NewKeyPool failed: %v", err)
	}

	pool.MarkRateLimited("a")

	for i := 0; i < 3; i++ {
		k, err := pool.Acquire()
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		if k != "b" {
			t.Errorf("acquire %d = %s, want b while a cools down", i, k)
		}
	}

	if pool.Available() != 1 {
		t.Errorf("Available = %d, want 1", pool.Available())
	}
}

func TestKeyPool_AllSlotsExhausted(t *testing.T) {
	pool, err := NewKeyPool([]string{"a", "b"}, time.Minute)
	if err != nil {
		t.Fatalf("NewKeyPool failed: %v", err)
	}

	pool.MarkRateLimited("a")
	pool.MarkRateLimited("b")

	_, err = pool.Acquire()
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != types.ErrAllSlotsExhausted {
		t.Errorf("code = %s, want %s", appErr.Code, types.ErrAllSlotsExhausted)
	}
}

func TestKeyPool_CooldownExpires(t *testing.T) {
	pool, err := NewKeyPool([]string{"a"}, time.Minute)
	if err != nil {
		t.Fatalf("NewKeyPool failed: %v", err)
	}

	now := time.Now()
	pool.now = func() time.Time { return now }

	pool.MarkRateLimited("a")
	if _, err := pool.Acquire(); err == nil {
		t.Fatal("expected exhaustion while within cooldown")
	}

	// just before expiry
	now = now.Add(59 * time.Second)
	if _, err := pool.Acquire(); err == nil {
		t.Fatal("cooldown must hold for the full window")
	}

	// past expiry the slot recovers on its own
	now = now.Add(2 * time.Second)
	k, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire after cooldown failed: %v", err)
	}
	if k != "a" {
		t.Errorf("recovered key = %s, want a", k)
	}
}

func TestKeyPool_MarkSuccessClearsCooldown(t *testing.T) {
	pool, err := NewKeyPool([]string{"a"}, time.Hour)
	if err != nil {
		t.Fatalf("NewKeyPool failed: %v", err)
	}

	pool.MarkRateLimited("a")
	if _, err := pool.Acquire(); err == nil {
		t.Fatal("expected exhaustion while cooling")
	}

	pool.MarkSuccess("a")
	k, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire after MarkSuccess failed: %v", err)
	}
	if k != "a" {
		t.Errorf("key = %s, want a", k)
	}
}

func TestKeyPool_ConcurrentAcquire(t *testing.T) {
	pool, err := NewKeyPool([]string{"a", "b", "c", "d"}, time.Minute)
	if err != nil {
		t.Fatalf("NewKeyPool failed: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				k, err := pool.Acquire()
				if err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}
				pool.MarkRateLimited(k)
				pool.MarkSuccess(k)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	if pool.Available() != 4 {
		t.Errorf("Available = %d, want 4 after all successes", pool.Available())
	}
}
