package core

import (
	"errors"
	"testing"
)

func TestStepLimiter_EnforcesLimit(t *testing.T) {
	sl := NewStepLimiter(2)

	if err := sl.Increment(); err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if err := sl.Increment(); err != nil {
		t.Fatalf("step 2: %v", err)
	}

	err := sl.Increment()
	if err == nil {
		t.Fatal("expected limit error on step 3")
	}
	if !errors.Is(err, ErrStepBudgetExceeded) {
		t.Errorf("expected ErrStepBudgetExceeded, got %v", err)
	}
	if sl.Count() != 3 {
		t.Errorf("count = %d, want 3", sl.Count())
	}
}

func TestStepLimiter_Unlimited(t *testing.T) {
	sl := NewStepLimiter(0)

	for i := 0; i < 100; i++ {
		if err := sl.Increment(); err != nil {
			t.Fatalf("unlimited limiter errored at %d: %v", i, err)
		}
	}
	if sl.Remaining() != -1 {
		t.Errorf("remaining = %d, want -1 for unlimited", sl.Remaining())
	}
}

func TestStepLimiter_Remaining(t *testing.T) {
	sl := NewStepLimiter(5)
	_ = sl.Increment()
	_ = sl.Increment()

	if sl.Remaining() != 3 {
		t.Errorf("remaining = %d, want 3", sl.Remaining())
	}
}
