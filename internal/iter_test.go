package internal

import (
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcat2(t *testing.T) {
	assert := assert.New(t)

	a := map[string]int{"a": 1}
	b := map[string]int{"b": 2}

	got := maps.Collect(Concat2(maps.All(a), maps.All(b)))
	assert.Equal(map[string]int{"a": 1, "b": 2}, got)

	// Early stop.
	var keys []string
	for k := range Concat2(maps.All(a), maps.All(b)) {
		keys = append(keys, k)
		break
	}
	assert.Equal([]string{"a"}, keys)
}

func TestSorted2(t *testing.T) {
	assert := assert.New(t)

	first := map[string]int{"z": 26, "m": 13}
	second := map[string]int{"a": 1, "m": -1}

	var keys []string
	var values []int
	for k, v := range Sorted2(Concat2(maps.All(first), maps.All(second))) {
		keys = append(keys, k)
		values = append(values, v)
	}
	assert.Equal([]string{"a", "m", "z"}, keys)
	assert.Equal([]int{1, 13, 26}, values)
	assert.True(slices.IsSorted(keys))
}
