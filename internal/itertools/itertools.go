// Package itertools provides small generic combinators over Go 1.23 range-over-func iterators
// (iter.Seq), used to keep the cover traversal code in this module free of hand-rolled
// loop-and-slice plumbing.
package itertools

import "iter"

// Filter yields only the values of seq for which pred returns true.
func Filter[T any](seq iter.Seq[T], pred func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range seq {
			if pred(v) && !yield(v) {
				return
			}
		}
	}
}

// Map yields transform(v) for every v in seq.
func Map[Vin, Vout any](seq iter.Seq[Vin], transform func(Vin) Vout) iter.Seq[Vout] {
	return func(yield func(Vout) bool) {
		for v := range seq {
			if !yield(transform(v)) {
				return
			}
		}
	}
}

// DistinctBy yields each value of seq at most once, where "the same value" means key(v) was
// already seen. Used to dedup repeated leaf references within a single cut before a cover walk
// enqueues them, so a cut listing the same leaf twice doesn't visit or count it twice.
func DistinctBy[T any, K comparable](seq iter.Seq[T], key func(T) K) iter.Seq[T] {
	return func(yield func(T) bool) {
		seen := map[K]bool{}
		for v := range seq {
			k := key(v)
			if seen[k] {
				continue
			}
			seen[k] = true
			if !yield(v) {
				return
			}
		}
	}
}
