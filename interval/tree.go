package interval

import (
	"math"

	"github.com/biogo/store/interval"
	"github.com/cockroachdb/errors"
)

// Tree indexes closed intervals [start,end] with a payload of type T.
// Identical intervals are kept as separate entries. An entry whose start is
// after its end is legal; it matches a query exactly when
// start <= queryEnd && end >= queryStart, like every other entry.
//
// Inserts are batched: the tree's subtree ranges are only recomputed on the
// first query after a run of inserts.
//
// Tree is not safe for concurrent use.
type Tree[T any] struct {
	tree   interval.IntTree
	nextID uintptr
	dirty  bool
}

// New creates an empty Tree.
func New[T any]() *Tree[T] {
	return &Tree[T]{}
}

type entry[T any] struct {
	start int64
	end   int64
	id    uintptr
	value T
}

// The stored range is the half-open span [lo, hi+1) of the normalized
// interval. It is only used to prune the walk; matches are decided on the
// original endpoints.
func (e *entry[T]) Range() interval.IntRange {
	lo, hi := e.start, e.end
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi >= math.MaxInt {
		hi = math.MaxInt - 1
		if lo > hi {
			lo = hi
		}
	}
	return interval.IntRange{Start: int(lo), End: int(hi) + 1}
}

func (e *entry[T]) ID() uintptr { return e.id }

func (e *entry[T]) Overlap(b interval.IntRange) bool {
	return spanOverlaps(b, e.start, e.end)
}

func (e *entry[T]) matches(qs, qe int64) bool {
	return e.start <= qe && e.end >= qs
}

// query tests a closed [start,end] window against half-open stored spans.
type query struct {
	start int64
	end   int64
}

func (q query) Overlap(b interval.IntRange) bool {
	return spanOverlaps(b, q.start, q.end)
}

// spanOverlaps reports whether the half-open span b meets the closed window
// [lo,hi]. Spans clamped at math.MaxInt are treated as closed on the right.
func spanOverlaps(b interval.IntRange, lo, hi int64) bool {
	if int64(b.Start) > hi {
		return false
	}
	return int64(b.End) > lo || b.End == math.MaxInt
}

// Insert adds [start,end] with its payload.
func (t *Tree[T]) Insert(start, end int64, value T) error {
	e := &entry[T]{start: start, end: end, id: t.nextID, value: value}
	if err := t.tree.Insert(e, true); err != nil {
		return errors.Wrapf(err, "can not insert interval [%d,%d]", start, end)
	}
	t.nextID++
	t.dirty = true
	return nil
}

// Len returns the number of entries in the tree.
func (t *Tree[T]) Len() int {
	return t.tree.Len()
}

// Overlap returns the payload of every entry intersecting [qs,qe]. Touching
// endpoints count. An inverted query is evaluated with the same predicate,
// which usually yields nothing.
func (t *Tree[T]) Overlap(qs, qe int64) []T {
	if t.tree.Len() == 0 {
		return nil
	}
	if t.dirty {
		t.tree.AdjustRanges()
		t.dirty = false
	}

	// The pruning query has to cover inverted selections too, so it is
	// widened to the normalized window.
	lo, hi := qs, qe
	if lo > hi {
		lo, hi = hi, lo
	}

	var ret []T
	for _, hit := range t.tree.Get(query{start: lo, end: hi}) {
		e := hit.(*entry[T])
		if e.matches(qs, qe) {
			ret = append(ret, e.value)
		}
	}
	return ret
}
