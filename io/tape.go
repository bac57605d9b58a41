package io

import (
	"fmt"
	"io"
)

// Tape writes each value as a decimal line to an io.Writer.
type Tape struct {
	Output io.Writer

	Written int // Number of values written since the last rewind.
}

var _ Channel = (*Tape)(nil)

// Rewind is not possible on a tape, only the counter is reset.
func (tc *Tape) Rewind() {
	tc.Written = 0
}

// Send writes the value in decimal, followed by a newline.
func (tc *Tape) Send(value uint8) (err error) {
	if tc.Output == nil {
		err = ErrChannelOutput
		return
	}

	_, err = fmt.Fprintf(tc.Output, "%d\n", value)
	if err != nil {
		return
	}

	tc.Written++

	return
}
