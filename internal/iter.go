package internal

import (
	"cmp"
	"iter"
	"maps"
	"slices"
)

// Concat2 chains pair iterators into a single iterator.
func Concat2[K any, V any](seqs ...iter.Seq2[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, seq := range seqs {
			for k, v := range seq {
				if !yield(k, v) {
					return
				}
			}
		}
	}
}

// Sorted2 yields the pairs of seq ordered by key. When a key repeats,
// the first value seen is kept.
func Sorted2[K cmp.Ordered, V any](seq iter.Seq2[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		m := map[K]V{}
		for k, v := range seq {
			if _, ok := m[k]; !ok {
				m[k] = v
			}
		}
		for _, k := range slices.Sorted(maps.Keys(m)) {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}
