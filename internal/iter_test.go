package internal

import (
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcat2(t *testing.T) {
	assert := assert.New(t)

	a := slices.All([]string{"x", "y"})
	b := slices.All([]string{"z"})

	var keys []int
	var values []string
	for key, value := range Concat2(a, b) {
		keys = append(keys, key)
		values = append(values, value)
	}

	assert.Equal([]int{0, 1, 0}, keys)
	assert.Equal([]string{"x", "y", "z"}, values)

	// Early exit.
	count := 0
	for range Concat2(a, b) {
		count++
		break
	}
	assert.Equal(1, count)
}

func TestSorted2(t *testing.T) {
	assert := assert.New(t)

	labels := map[string]int{"loop": 6, "done": 10, "start": 0}
	equates := map[string]int{"done": 99}

	var names []string
	var values []int
	for name, value := range Sorted2(Concat2(maps.All(labels), maps.All(equates))) {
		names = append(names, name)
		values = append(values, value)
	}

	assert.Equal([]string{"done", "done", "loop", "start"}, names)
	assert.Equal([]int{10, 99, 6, 0}, values)

	assert.Equal([]string{"done", "done", "loop", "start"},
		slices.Collect(Keys2(Sorted2(Concat2(maps.All(labels), maps.All(equates))))))
}
