package io

import (
	"slices"
)

// Rom is a read-only program image. Memory is reloaded from it on every
// emulator reset.
type Rom struct {
	Data []uint8
}

// Burn replaces the image with a copy of data.
func (rc *Rom) Burn(data []uint8) {
	rc.Data = slices.Clone(data)
}

// Size of the image, in bytes.
func (rc *Rom) Size() int {
	return len(rc.Data)
}
