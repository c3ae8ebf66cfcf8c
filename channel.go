//go:build linux || darwin

package chanselect

import (
	"container/list"
	"runtime"
	"sync"
)

// protoMsg is a single-byte message exchanged over a participant's pipe.
// These are the only three messages the rendezvous protocol needs: a
// winning visitor tells a waiting sitter whether the transfer succeeded
// (protoDone/protoError), and a departing queue head hands off to its
// successor with protoPoke.
type protoMsg byte

const (
	protoDone protoMsg = iota
	protoError
	protoPoke
)

// participant is one goroutine's place in a channel's sender or receiver
// queue. Only the value (sender) or dest (receiver) field is populated,
// depending on which queue it sits in.
type participant[T any] struct {
	pipe  *pipe
	ctx   eventContext
	poked bool

	value *T // set for a participant in the senders queue
	dest  *T // set for a participant in the receivers queue

	elem *list.Element // this participant's node, for O(1) removal
}

// channelState is the shared state backing one Channel[T] handle. It
// outlives any single Select call; its pipePool is destroyed along with it
// when the last Channel handle referencing it is dropped (garbage
// collected), since there is no explicit Close in this synchronous,
// non-closing channel model (spec.md Non-goals).
type channelState[T any] struct {
	mu        sync.Mutex
	pool      pipePool
	senders   list.List // of *participant[T]
	receivers list.List // of *participant[T]
}

// Channel is an unbuffered, synchronous rendezvous point for values of type
// T. Every send pairs with exactly one receive; there is no buffering and
// no notion of closing (see spec.md Non-goals). The zero value is not
// usable; construct one with NewChannel.
type Channel[T any] struct {
	state *channelState[T]
}

// NewChannel returns a new, empty Channel[T].
func NewChannel[T any]() *Channel[T] {
	c := &Channel[T]{state: &channelState[T]{}}
	runtime.SetFinalizer(c, func(c *Channel[T]) {
		c.state.pool.closeAll()
	})
	return c
}

// Send returns an Event that, when fulfilled by Select, delivers value to
// whichever goroutine is fulfilled by the matching Recv.
func (c *Channel[T]) Send(value T) Event {
	return &chanEvent[T]{ch: c, isSender: true, value: value}
}

// Recv returns an Event that, when fulfilled by Select, writes the
// transferred value into *dest.
func (c *Channel[T]) Recv(dest *T) Event {
	return &chanEvent[T]{ch: c, isSender: false, dest: dest}
}

// SendVal blocks until value has been received by a matching Recv,
// equivalent to calling Select with only this channel's Send event. This is
// the explicit replacement (per spec.md §9's redesign note) for the
// original engine's implicit "select in the destructor" ergonomics.
func (c *Channel[T]) SendVal(value T) error {
	if _, err := Select(c.Send(value)); err != nil {
		return err
	}
	return nil
}

// RecvVal blocks until a value has been sent by a matching Send and returns
// it, equivalent to calling Select with only this channel's Recv event.
func (c *Channel[T]) RecvVal() (T, error) {
	var v T
	if _, err := Select(c.Recv(&v)); err != nil {
		return v, err
	}
	return v, nil
}

// chanEvent is the Event implementation shared by Send and Recv; which role
// it plays is determined by isSender. It directly implements the sender and
// receiver sides of the rendezvous protocol described in spec.md §4.3: a
// newly enqueued participant that finds itself alone at the head of its own
// queue, facing a non-empty opposing queue, becomes a visitor and attempts
// to commit the transfer immediately under both parties' fulfillment-slot
// locks; otherwise it sits, polling its own pipe for a POKE hand-off or a
// DONE/ERROR result written by a later visitor.
type chanEvent[T any] struct {
	ch       *Channel[T]
	isSender bool
	value    T  // valid when isSender
	dest     *T // valid when !isSender

	ctx eventContext
	me  *participant[T]
	// them is the opposing participant this event is (or was) visiting.
	them *participant[T]
}

func (e *chanEvent[T]) myQueue() *list.List {
	if e.isSender {
		return &e.ch.state.senders
	}
	return &e.ch.state.receivers
}

func (e *chanEvent[T]) opponentQueue() *list.List {
	if e.isSender {
		return &e.ch.state.receivers
	}
	return &e.ch.state.senders
}

func (e *chanEvent[T]) file(ctx eventContext) (ioDescriptor, *Error) {
	e.ctx = ctx

	p, err := e.ch.state.pool.allocate()
	if err != nil {
		return ioDescriptor{}, err
	}

	me := &participant[T]{pipe: p, ctx: ctx}
	if e.isSender {
		me.value = &e.value
	} else {
		me.dest = e.dest
	}
	e.me = me

	st := e.ch.state
	st.mu.Lock()
	mine := e.myQueue()
	theirs := e.opponentQueue()
	me.elem = mine.PushBack(me)

	if mine.Len() == 1 && theirs.Len() > 0 {
		them := theirs.Front().Value.(*participant[T])
		them.pipe.refs++
		e.them = them
		st.mu.Unlock()
		return e.attemptTransfer()
	}

	st.mu.Unlock()
	return readDescriptor(me.pipe.readFD), nil
}

// attemptTransfer runs the visitor side of the protocol: lock both
// fulfillment slots in address order, verify both are still fulfillable,
// commit the transfer, and wake the sitter. If either slot has already been
// claimed, this event falls back to waiting on its own pipe like a sitter.
func (e *chanEvent[T]) attemptTransfer() (ioDescriptor, *Error) {
	me, them := e.me, e.them
	unlock := lockOrdered(e.ctx.slot, them.ctx.slot)

	myState, _ := e.ctx.slot.stateLocked()
	if myState != fulfillable {
		unlock()
		return readDescriptor(me.pipe.readFD), nil
	}
	theirState, _ := them.ctx.slot.stateLocked()
	if theirState != fulfillable {
		unlock()
		return readDescriptor(me.pipe.readFD), nil
	}

	e.ctx.slot.commitLocked(e.ctx.key)
	them.ctx.slot.commitLocked(them.ctx.key)

	if e.isSender {
		*them.dest = e.value
	} else {
		*e.dest = *them.value
	}
	unlock()

	if werr := writeByte(them.pipe.writeFD, byte(protoDone)); werr != nil {
		e.cleanup()
		return ioDescriptor{}, werr
	}
	LogRendezvousCommitted(int64(uintptrOf(e.ctx.slot)), int64(e.ctx.key))
	e.cleanup()
	return fulfilledDescriptor(), nil
}

func (e *chanEvent[T]) fulfill(last ioDescriptor) (ioDescriptor, *Error) {
	b, err := readByte(e.me.pipe.readFD)
	if err != nil {
		return ioDescriptor{}, err
	}

	switch protoMsg(b) {
	case protoDone:
		e.cleanup()
		return fulfilledDescriptor(), nil
	case protoError:
		e.cleanup()
		return ioDescriptor{}, NewError(Transfer)
	default: // protoPoke
		st := e.ch.state
		st.mu.Lock()
		theirs := e.opponentQueue()
		me := e.me
		me.poked = false

		var staleThem *pipe
		if theirs.Len() > 0 {
			front := theirs.Front().Value.(*participant[T])
			if !front.poked {
				// If a previous poke cycle already designated a them that
				// we never got to transfer with, release our hold on it
				// before taking on the new candidate.
				if e.them != nil && e.them != front {
					e.them.pipe.refs--
					if e.them.pipe.refs == 0 {
						staleThem = e.them.pipe
					}
				}
				front.pipe.refs++
				e.them = front
				st.mu.Unlock()
				if staleThem != nil {
					_ = st.pool.deallocate(staleThem)
				}
				return e.attemptTransfer()
			}
		}
		st.mu.Unlock()
		return readDescriptor(me.pipe.readFD), nil
	}
}

// cancel implements spec.md §4.3 step 4. Ordinarily this event lost and
// never touched its pipe, so cancel is plain cleanup. But if the slot reads
// FULFILLED with this event's own key, a peer already committed the
// rendezvous against it — a DONE or ERROR message is sitting unread in its
// pipe and must be consumed before cleanup, or it would leak into the pipe
// pool's next owner.
func (e *chanEvent[T]) cancel(last ioDescriptor) *Error {
	state, key := e.ctx.slot.peek()
	if state != fulfilled || key != e.ctx.key {
		e.cleanup()
		return nil
	}

	b, err := readByte(e.me.pipe.readFD)
	e.cleanup()
	if err != nil {
		return err
	}
	if protoMsg(b) == protoError {
		return NewError(Transfer)
	}
	return nil
}

// cleanup detaches this event's participant from its queue, releases its
// (and, if applicable, its opponent's) pipe reference, and hands off to the
// new queue head via a POKE message if doing so could let it find a partner.
func (e *chanEvent[T]) cleanup() {
	st := e.ch.state
	me := e.me

	var deallocMine, deallocTheirs bool
	var pokeFD int
	var doPoke bool

	st.mu.Lock()
	mine := e.myQueue()
	theirs := e.opponentQueue()

	wasHead := mine.Front() == me.elem
	mine.Remove(me.elem)

	me.pipe.refs--
	deallocMine = me.pipe.refs == 0

	if e.them != nil {
		e.them.pipe.refs--
		deallocTheirs = e.them.pipe.refs == 0
	}

	if wasHead && mine.Len() > 0 && theirs.Len() > 0 {
		newHead := mine.Front().Value.(*participant[T])
		newHead.poked = true
		pokeFD = newHead.pipe.writeFD
		doPoke = true
	}
	st.mu.Unlock()

	if doPoke {
		_ = writeByte(pokeFD, byte(protoPoke))
	}
	if deallocMine {
		_ = st.pool.deallocate(me.pipe)
	}
	if deallocTheirs {
		_ = st.pool.deallocate(e.them.pipe)
	}
}
