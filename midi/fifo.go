package midi

import "sync/atomic"

// DefaultFIFOCapacity is the outbound MIDI byte ring's default size
// (spec.md §3).
const DefaultFIFOCapacity = 2048

// FIFO is a bounded single-producer/single-consumer byte ring. The host
// thread calls Push; the run-step thread calls Peek/Drain. Both sides only
// touch their own index, so no lock is needed -- matching spec.md §4.B and
// §5 ("the implementer chooses the synchronization; atomic indices
// suffice for SPSC").
//
// head and tail are monotonically increasing counters, not wrapped
// indices: this makes "full" and "empty" unambiguous without wasting a
// slot, at the cost of wrapping buf[] through a modulo on every access.
type FIFO struct {
	buf        []byte
	head, tail atomic.Uint64 // head: next byte to read; tail: next byte to write
}

// NewFIFO allocates a ring buffer with the given byte capacity.
func NewFIFO(capacity int) *FIFO {
	if capacity <= 0 {
		capacity = DefaultFIFOCapacity
	}
	return &FIFO{buf: make([]byte, capacity)}
}

// Cap returns the ring's total capacity in bytes.
func (f *FIFO) Cap() int {
	return len(f.buf)
}

// Len returns the number of unread bytes currently buffered.
func (f *FIFO) Len() int {
	return int(f.tail.Load() - f.head.Load())
}

// Push appends b to the ring. It is all-or-nothing: if b would overflow
// the remaining capacity, nothing is written and Push returns false.
func (f *FIFO) Push(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	head := f.head.Load()
	tail := f.tail.Load()
	if int(tail-head)+len(b) > len(f.buf) {
		return false
	}
	for i, c := range b {
		f.buf[(int(tail)+i)%len(f.buf)] = c
	}
	f.tail.Store(tail + uint64(len(b)))
	return true
}

// Peek copies up to len(out) unread bytes into out without advancing the
// read position, returning the number of bytes copied. It lets the
// run-step inspect pending bytes to find a safe command boundary before
// committing to Drain.
func (f *FIFO) Peek(out []byte) int {
	head := f.head.Load()
	tail := f.tail.Load()
	n := int(tail - head)
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = f.buf[(int(head)+i)%len(f.buf)]
	}
	return n
}

// Drain advances the read position by n bytes, which must not exceed the
// number of bytes last reported by Peek/Len. It is the run-step's
// counterpart to DrainUpTo, split into Peek+Drain so the caller can choose
// exactly how many of the peeked bytes to commit to (see the session
// package's outFramer, which commits one complete MIDI command or one SysEx
// segment at a time).
func (f *FIFO) Drain(n int) {
	if n <= 0 {
		return
	}
	f.head.Store(f.head.Load() + uint64(n))
}

// DrainUpTo copies at most n bytes into out (which must have length >= n),
// advances the read index, and returns the number of bytes copied. This is
// the direct spec.md §4.B primitive; Peek+Drain above is the
// command-boundary-aware variant the session send path actually uses.
func (f *FIFO) DrainUpTo(n int, out []byte) int {
	if n > len(out) {
		n = len(out)
	}
	got := f.Peek(out[:n])
	f.Drain(got)
	return got
}
