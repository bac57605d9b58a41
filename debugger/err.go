package debugger

import (
	"errors"

	"github.com/ezrec/ls8/translate"
)

var f = translate.From

var (
	ErrCommandUnknown    = errors.New(f("unknown command"))
	ErrCommandArgs       = errors.New(f("wrong number of arguments"))
	ErrBreakpointMissing = errors.New(f("no breakpoint at that address"))
)

// ErrAddress is an address that is neither a number nor a label.
type ErrAddress string

func (err ErrAddress) Error() string {
	return f("'%v' is not an address or label", string(err))
}
