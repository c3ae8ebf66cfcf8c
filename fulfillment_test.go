package chanselect

import "testing"

func TestFulfillmentSlotTryFulfillOnce(t *testing.T) {
	s := newFulfillmentSlot()

	if !s.tryFulfill(3) {
		t.Fatal("first tryFulfill should succeed")
	}
	if s.tryFulfill(4) {
		t.Fatal("second tryFulfill should fail once already fulfilled")
	}

	state, key := s.peek()
	if state != fulfilled || key != 3 {
		t.Fatalf("peek() = (%v, %v), want (fulfilled, 3)", state, key)
	}
}

func TestFulfillmentSlotMarkUnfulfillable(t *testing.T) {
	s := newFulfillmentSlot()
	s.markUnfulfillable()

	if s.tryFulfill(1) {
		t.Fatal("tryFulfill should fail once unfulfillable")
	}
	state, _ := s.peek()
	if state != unfulfillable {
		t.Fatalf("peek() state = %v, want unfulfillable", state)
	}
}

func TestLockOrderedSameSlot(t *testing.T) {
	s := newFulfillmentSlot()
	unlock := lockOrdered(s, s)
	state, _ := s.stateLocked()
	if state != fulfillable {
		t.Fatalf("stateLocked() = %v, want fulfillable", state)
	}
	unlock()
}

func TestLockOrderedDistinctSlotsConsistentOrder(t *testing.T) {
	a := newFulfillmentSlot()
	b := newFulfillmentSlot()

	unlock1 := lockOrdered(a, b)
	unlock1()
	unlock2 := lockOrdered(b, a)
	unlock2()

	// Both orderings must resolve to the same lock acquisition order
	// internally; this test just verifies neither call deadlocks or panics.
}

func TestCommitLockedUnderLockOrdered(t *testing.T) {
	a := newFulfillmentSlot()
	b := newFulfillmentSlot()

	unlock := lockOrdered(a, b)
	a.commitLocked(EventKey(0))
	b.commitLocked(EventKey(1))
	unlock()

	stateA, keyA := a.peek()
	stateB, keyB := b.peek()
	if stateA != fulfilled || keyA != 0 {
		t.Fatalf("a: (%v, %v), want (fulfilled, 0)", stateA, keyA)
	}
	if stateB != fulfilled || keyB != 1 {
		t.Fatalf("b: (%v, %v), want (fulfilled, 1)", stateB, keyB)
	}
}
