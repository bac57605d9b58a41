package io

import (
	"iter"
	"slices"
)

// Temporary records values in memory, in the order they were sent.
// A zero Capacity means the buffer is unbounded.
type Temporary struct {
	Capacity int // Capacity in values.

	Data []uint8
}

var _ Channel = (*Temporary)(nil)

// Rewind discards all recorded values.
func (temp *Temporary) Rewind() {
	temp.Data = temp.Data[:0]
}

// Receive returns an iterator over the recorded values.
func (temp *Temporary) Receive() iter.Seq[uint8] {
	return slices.Values(temp.Data)
}

// Send records a value.
// Returns ErrChannelFull if the buffer has reached capacity.
func (temp *Temporary) Send(value uint8) (err error) {
	if temp.Capacity > 0 && len(temp.Data) >= temp.Capacity {
		err = ErrChannelFull
		return
	}

	temp.Data = append(temp.Data, value)

	return
}
