// Package io provides output channel implementations for the LS-8 emulator.
// The CPU sends every value printed by PRN to a Channel: a Tape writes it
// to a byte stream, a Temporary keeps it for later inspection, and a Tee
// fans it out to several channels at once. A Rom holds the program image
// that memory is reloaded from.
package io

// Channel defines the interface for all output channels in the LS-8 system.
type Channel interface {
	// Rewind resets the channel to its initial state.
	Rewind()
	// Send writes a single value to the channel.
	Send(value uint8) error
}

// Tee sends every value to each of its channels, in order.
type Tee []Channel

var _ Channel = (Tee)(nil)

// Rewind rewinds all of the channels.
func (tee Tee) Rewind() {
	for _, ch := range tee {
		ch.Rewind()
	}
}

// Send stops at the first channel that fails.
func (tee Tee) Send(value uint8) (err error) {
	for _, ch := range tee {
		err = ch.Send(value)
		if err != nil {
			return
		}
	}
	return
}
