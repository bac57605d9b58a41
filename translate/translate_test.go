package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("line 3 missing", From("line %d %v", 3, "missing"))
	assert.Equal("unknown instruction 0b00000101 at address 0b11111111\n",
		Line("unknown instruction 0b%08b at address 0b%08b", uint8(5), uint8(0xff)))
}
