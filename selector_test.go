//go:build linux || darwin

package chanselect

import (
	"testing"
	"time"
)

func TestSelectDeadlineInPastFulfillsImmediately(t *testing.T) {
	start := time.Now()
	idx, err := Select(Deadline(start.Add(-time.Hour)))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if idx != 0 {
		t.Fatalf("idx = %d, want 0", idx)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("past deadline took %v to fulfill, want near-immediate", elapsed)
	}
}

func TestSelectSingleTimeoutEvent(t *testing.T) {
	start := time.Now()
	idx, err := Select(Timeout(30 * time.Millisecond))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if idx != 0 {
		t.Fatalf("idx = %d, want 0", idx)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("elapsed = %v, expected at least ~30ms", elapsed)
	}
}

func TestFindByKeyLinearScan(t *testing.T) {
	s := &selector{
		records: []*pollRecord{
			{argIndex: 0},
			{argIndex: 1},
			{argIndex: 2},
		},
	}
	r := s.findByKey(EventKey(1))
	if r == nil || r.argIndex != 1 {
		t.Fatalf("findByKey(1) = %v, want record with argIndex 1", r)
	}
	if got := s.findByKey(EventKey(99)); got != nil {
		t.Fatalf("findByKey(99) = %v, want nil", got)
	}
}
