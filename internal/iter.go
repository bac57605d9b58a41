// Package internal holds iterator helpers shared by the LS-8 tools.
package internal

import (
	"cmp"
	"iter"
	"slices"
)

// Concat2 yields the pairs of each sequence in turn.
func Concat2[K any, V any](seqs ...iter.Seq2[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, seq := range seqs {
			for key, value := range seq {
				if !yield(key, value) {
					return
				}
			}
		}
	}
}

// Sorted2 yields the pairs of a sequence ordered by key. Pairs with equal
// keys keep their original order.
func Sorted2[K cmp.Ordered, V any](seq iter.Seq2[K, V]) iter.Seq2[K, V] {
	type pair struct {
		key   K
		value V
	}

	var pairs []pair
	for key, value := range seq {
		pairs = append(pairs, pair{key, value})
	}

	slices.SortStableFunc(pairs, func(a, b pair) int {
		return cmp.Compare(a.key, b.key)
	})

	return func(yield func(K, V) bool) {
		for _, p := range pairs {
			if !yield(p.key, p.value) {
				return
			}
		}
	}
}

// Keys2 yields the keys of a sequence.
func Keys2[K any, V any](seq iter.Seq2[K, V]) iter.Seq[K] {
	return func(yield func(K) bool) {
		for key := range seq {
			if !yield(key) {
				return
			}
		}
	}
}
