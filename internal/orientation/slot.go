// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

// Slot is a single-value mailbox between a sensor callback and the frame
// loop. Put never blocks and overwrites any value not yet taken; Take returns
// the most recent value at most once.
type Slot[T any] struct {
	ch chan T
}

// NewSlot returns an empty slot.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{ch: make(chan T, 1)}
}

// Put stores v, replacing an unread value.
func (s *Slot[T]) Put(v T) {
	for {
		select {
		case s.ch <- v:
			return
		default:
		}
		// Full: drop the stale value and retry.
		select {
		case <-s.ch:
		default:
		}
	}
}

// C delivers the pending value to a select loop. Receiving from it is the
// same as a successful Take.
func (s *Slot[T]) C() <-chan T { return s.ch }

// Take returns the latest value, or false if nothing arrived since the
// previous Take.
func (s *Slot[T]) Take() (T, bool) {
	select {
	case v := <-s.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}
