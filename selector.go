//go:build linux || darwin

package chanselect

import (
	"time"
)

// recordState tracks, per event in one Select call, whether it still needs
// cleaning up if the call unwinds from an error.
type recordState int

const (
	uninitialized recordState = iota
	active
	done
)

// pollRecord pairs a candidate event with its most recent ioDescriptor and
// lifecycle state. The Selector shuffles records (not the argument order)
// once, before setup, and visits them in that order afterwards, so that ties
// between simultaneously-ready events are broken uniformly; the winner's
// *original* argument index is
// recovered from argIndex, which never moves.
type pollRecord struct {
	argIndex int
	evt      event
	desc     ioDescriptor
	state    recordState
}

// selector holds all of the state for one call to Select.
type selector struct {
	slot    *fulfillmentSlot
	records []*pollRecord
	rng     *random15
}

// Select blocks until exactly one of the given events becomes fulfillable,
// performs its side effect, cancels the rest, and returns its zero-based
// argument index. If an error occurs before any event is fulfilled, Select
// returns a negative index, a non-nil error, and records the same error in
// LastError() for the calling goroutine.
func Select(events ...Event) (int, error) {
	if len(events) == 0 {
		err := NewError(Other)
		setLastError(err)
		return -1, err
	}

	s := &selector{
		slot: newFulfillmentSlot(),
		rng:  newRandom15(systemSeed()),
	}
	s.records = make([]*pollRecord, len(events))
	for i, e := range events {
		s.records[i] = &pollRecord{argIndex: i, evt: e.(event)}
	}

	idx, err := s.run()
	if err != nil {
		setLastError(err)
		return -1, err
	}
	return idx, nil
}

func (s *selector) run() (int, *Error) {
	shuffled := make([]*pollRecord, len(s.records))
	copy(shuffled, s.records)
	shuffle(shuffled, s.rng)

	winner, err := s.setup(shuffled)
	if err != nil {
		return s.unwind(err)
	}

	for winner == nil {
		winner, err = s.doPoll(shuffled)
		if err != nil {
			return s.unwind(err)
		}
	}

	return s.commit(winner)
}

// commit finalizes a winner found by setup/doPoll. Per spec.md §4.4 step 4,
// it first claims the slot for the winner's key under the slot mutex — this
// is a no-op if a peer (or the winner's own visitor-side commit) already
// claimed it, but is essential when the winner is a purely local event
// (timeout, deadline, file I/O): without it, a concurrent channel peer could
// still observe the slot as fulfillable and complete a second, losing
// rendezvous while this call is busy cancelling everyone else.
//
// If the winner was only discovered via the slot (its own fulfill() never
// ran — the record's descriptor never reported fulfilled), its cancel() is
// called here instead, exactly as it would be for a loser: per spec.md §4.3
// step 4, chanEvent.cancel in this situation still has a pending DONE/ERROR
// message to consume. A resulting error becomes this call's primary error.
func (s *selector) commit(winner *pollRecord) (int, *Error) {
	s.slot.tryFulfill(EventKey(winner.argIndex))

	if !winner.desc.fulfilled {
		if err := winner.evt.cancel(winner.desc); err != nil {
			winner.state = done
			return s.unwind(err)
		}
	}
	winner.state = done

	for _, r := range s.records {
		if r == winner || r.state != active {
			continue
		}
		r.evt.cancel(r.desc)
		r.state = done
	}

	return winner.argIndex, nil
}

// setup calls file() on every record (in shuffled order, the same order
// handleTimeout and handleFileEvent dispatch in) and returns immediately if any of
// them is already fulfilled, or if a concurrent peer has already committed
// this call's slot.
func (s *selector) setup(shuffled []*pollRecord) (*pollRecord, *Error) {
	for _, r := range shuffled {
		desc, err := r.evt.file(eventContext{slot: s.slot, key: EventKey(r.argIndex)})
		if err != nil {
			// file() failed before acquiring anything that needs
			// cancelling, so this record never becomes active.
			r.state = done
			return nil, err
		}
		r.desc = desc
		r.state = active

		if desc.fulfilled {
			return r, nil
		}
		if state, key := s.slot.peek(); state == fulfilled {
			return s.findByKey(key), nil
		}
	}
	return nil, nil
}

// id returns a stable identifier for this selector's fulfillment slot,
// suitable for correlating log entries across one Select call.
func (s *selector) id() int64 {
	return int64(uintptrOf(s.slot))
}

func (s *selector) findByKey(key EventKey) *pollRecord {
	for _, r := range s.records {
		if EventKey(r.argIndex) == key {
			return r
		}
	}
	return nil
}

// doPoll builds the pollfd-equivalent set from each active record's last
// descriptor, blocks in the OS poll primitive for at most the earliest
// timeout's remaining duration, and dispatches whichever records became
// ready.
func (s *selector) doPoll(shuffled []*pollRecord) (*pollRecord, *Error) {
	entries := make([]pollEntry, 0, len(s.records))
	var deadline *time.Time

	for _, r := range s.records {
		if r.state != active {
			continue
		}
		if r.desc.timeout {
			if deadline == nil || r.desc.expiration.Before(*deadline) {
				d := r.desc.expiration
				deadline = &d
			}
			continue
		}
		entries = append(entries, pollEntry{record: r, fd: r.desc.file, read: r.desc.read, write: r.desc.write})
	}

	timeoutMs := -1
	if deadline != nil {
		remaining := time.Until(*deadline)
		if remaining < 0 {
			remaining = 0
		}
		timeoutMs = int(remaining / time.Millisecond)
	}

	LogSelectBlocked(s.id(), len(entries), timeoutMs)

	n, perr := osPoll(entries, timeoutMs)
	if perr != nil {
		if perr.interrupted {
			return nil, nil
		}
		err := NewErrnoError(Poll, perr.errno)
		LogPollError(s.id(), err)
		return nil, err
	}

	if state, key := s.slot.peek(); state == fulfilled {
		return s.findByKey(key), nil
	}

	if n == 0 {
		return s.handleTimeout(shuffled)
	}
	return s.handleFileEvent(shuffled, entries)
}

func (s *selector) handleTimeout(shuffled []*pollRecord) (*pollRecord, *Error) {
	now := time.Now()
	for _, r := range shuffled {
		if r.state != active || !r.desc.timeout {
			continue
		}
		if r.desc.expiration.After(now) {
			continue
		}
		desc, err := r.evt.fulfill(r.desc)
		if err != nil {
			return nil, err
		}
		r.desc = desc
		if desc.fulfilled {
			return r, nil
		}
		if state, key := s.slot.peek(); state == fulfilled {
			return s.findByKey(key), nil
		}
	}
	return nil, nil
}

func (s *selector) handleFileEvent(shuffled []*pollRecord, entries []pollEntry) (*pollRecord, *Error) {
	ready := make(map[*pollRecord]pollEntry, len(entries))
	for _, e := range entries {
		if e.revRead || e.revWrite || e.revHangup || e.revError || e.revInvalid {
			ready[e.record] = e
		}
	}

	for _, r := range shuffled {
		e, ok := ready[r]
		if !ok {
			continue
		}

		desc := r.desc
		// POLLHUP/POLLERR/POLLNVAL are tested with bitwise AND against the
		// revents mask, not OR: spec.md §9 flags the original's `|` as a bug.
		desc.hangup = e.revHangup
		desc.errorFlag = e.revError
		desc.invalid = e.revInvalid

		newDesc, err := r.evt.fulfill(desc)
		if err != nil {
			return nil, err
		}
		r.desc = newDesc
		if newDesc.fulfilled {
			return r, nil
		}
		if state, key := s.slot.peek(); state == fulfilled {
			return s.findByKey(key), nil
		}
	}
	return nil, nil
}

// unwind runs cancel() on every still-active record, folding any errors
// that occur along the way into a single SELECT_UNWINDING error (spec.md
// §4.4/§7), and marks the slot unfulfillable first so that no peer attempts
// a rendezvous against a call that is tearing down.
func (s *selector) unwind(primary *Error) (int, *Error) {
	LogSelectUnwound(s.id(), primary)
	s.slot.markUnfulfillable()

	combined := newUnwindingError(primary)
	sawAnother := false

	for _, r := range s.records {
		if r.state != active {
			continue
		}
		if cancelErr := r.evt.cancel(r.desc); cancelErr != nil {
			sawAnother = true
			combined.AppendMessage(cancelErr.Error())
			combined.appendCause(cancelErr)
		}
		r.state = done
	}

	final := primary
	if sawAnother {
		final = combined
	}
	return -1, final
}
