// Package arity implements the process-global interning table for arities
// (the ordered, duplicate-free feature sets of records) and the total order
// shared by literal feature values.
//
// This package is deliberately decoupled from the concrete value
// representation: it operates over the Literal interface below, which the
// internal/value package's Value type implements. That keeps the
// literal-and-arity-table component (spec.md §2, "Literal & arity tables")
// free of a dependency on the full value model, mirroring how the original
// gooz implementation keeps arity.h/.cc free of any #include on the
// compiler or thread machinery.
package arity

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
)

// Literal is anything that can appear as a record feature: a small or big
// integer, an atom, or a name. Implementations must provide a total order:
// exactly one of a.Less(b), a.EqualLiteral(b), b.Less(a) holds.
type Literal interface {
	// ClassRank orders literal classes: Integer < Atom < Name.
	ClassRank() int
	// LessSameClass reports a<other assuming same ClassRank.
	LessSameClass(other Literal) bool
	// EqualLiteral reports structural/identity equality between literals.
	EqualLiteral(other Literal) bool
	// HashCode is a stable hash used to bucket the arity intern table,
	// mirroring ArityHashCode in the original gooz arity.cc.
	HashCode() uint64
}

// Less implements the total literal order described in spec.md §3: class
// order first (Integer < Atom < Name), then value order within a class.
func Less(a, b Literal) bool {
	if a.ClassRank() != b.ClassRank() {
		return a.ClassRank() < b.ClassRank()
	}
	return a.LessSameClass(b)
}

// Equal reports whether a and b are the same literal.
func Equal(a, b Literal) bool {
	return a.ClassRank() == b.ClassRank() && a.EqualLiteral(b)
}

// ErrFeatureNotFound is returned by Map when the feature is absent.
type ErrFeatureNotFound struct {
	Feature Literal
	Arity   *Arity
}

func (e *ErrFeatureNotFound) Error() string {
	return fmt.Sprintf("feature not found in arity of width %d", e.Arity.Width())
}

// Arity is an interned, sorted, duplicate-free sequence of literal
// features: the shape of a record. Two Arity values built from feature sets
// that sort to the same sequence are always the same pointer.
type Arity struct {
	features []Literal
	hash     uint64
	isTuple  bool
}

// Features returns the arity's sorted feature list. Callers must not
// mutate the returned slice.
func (a *Arity) Features() []Literal { return a.features }

// Width is the number of features (record arity's "size").
func (a *Arity) Width() int { return len(a.features) }

// IsTuple reports whether this arity's last feature equals its size and
// every feature is the small integer sequence 1..size — the condition
// under which a Record sharing this arity must instead be built as a
// Tuple (spec.md §4.4 normalization rule).
func (a *Arity) IsTuple() bool { return a.isTuple }

func computeHash(sorted []Literal) uint64 {
	hash := uint64(11)
	for _, l := range sorted {
		hash = 31*hash + 7*l.HashCode()
	}
	return hash
}

func computeIsTuple(sorted []Literal) bool {
	for i, l := range sorted {
		si, ok := l.(interface{ SmallIntValue() (int64, bool) })
		if !ok {
			return false
		}
		v, isSmall := si.SmallIntValue()
		if !isSmall || v != int64(i+1) {
			return false
		}
	}
	return true
}

var (
	mu    sync.Mutex
	table = make(map[uint64][]*Arity)
)

// Get dedup-sorts the given features using the literal total order and
// interns the resulting sorted sequence, returning the unique Arity for it.
func Get(features []Literal) *Arity {
	sorted := append([]Literal(nil), features...)
	slices.SortFunc(sorted, func(a, b Literal) int {
		if Equal(a, b) {
			return 0
		}
		if Less(a, b) {
			return -1
		}
		return 1
	})
	sorted = dedup(sorted)
	return intern(sorted)
}

func dedup(sorted []Literal) []Literal {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, l := range sorted[1:] {
		if !Equal(out[len(out)-1], l) {
			out = append(out, l)
		}
	}
	return out
}

func intern(sorted []Literal) *Arity {
	hash := computeHash(sorted)
	mu.Lock()
	defer mu.Unlock()
	for _, candidate := range table[hash] {
		if sameFeatures(candidate.features, sorted) {
			return candidate
		}
	}
	a := &Arity{
		features: sorted,
		hash:     hash,
		isTuple:  computeIsTuple(sorted),
	}
	table[hash] = append(table[hash], a)
	return a
}

func sameFeatures(a, b []Literal) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// tupleCache avoids re-sorting on every GetTuple(n) call for the common
// small-n case.
var (
	tupleMu    sync.Mutex
	tupleCache = make(map[int]*Arity)
)

// GetTuple returns the interned, specialized arity of features 1..n.
func GetTuple(n int, mkSmallInt func(int64) Literal) *Arity {
	tupleMu.Lock()
	if a, ok := tupleCache[n]; ok {
		tupleMu.Unlock()
		return a
	}
	tupleMu.Unlock()

	features := make([]Literal, n)
	for i := 0; i < n; i++ {
		features[i] = mkSmallInt(int64(i + 1))
	}
	a := intern(features)

	tupleMu.Lock()
	tupleCache[n] = a
	tupleMu.Unlock()
	return a
}

// Has performs a binary search for feature among the arity's features.
func (a *Arity) Has(feature Literal) bool {
	_, ok := a.IndexOf(feature)
	return ok
}

// IndexOf performs a binary search and returns the dense position of
// feature, or false if absent.
func (a *Arity) IndexOf(feature Literal) (int, bool) {
	i, found := slices.BinarySearchFunc(a.features, feature, func(x, target Literal) int {
		if Equal(x, target) {
			return 0
		}
		if Less(x, target) {
			return -1
		}
		return 1
	})
	return i, found
}

// Map returns the dense position of feature, or ErrFeatureNotFound.
func (a *Arity) Map(feature Literal) (int, error) {
	i, ok := a.IndexOf(feature)
	if !ok {
		return 0, &ErrFeatureNotFound{Feature: feature, Arity: a}
	}
	return i, nil
}

// Subtract returns the interned arity obtained by removing feature, which
// must be present.
func (a *Arity) Subtract(feature Literal) *Arity {
	i, ok := a.IndexOf(feature)
	if !ok {
		panic("arity: Subtract of an absent feature")
	}
	out := make([]Literal, 0, len(a.features)-1)
	out = append(out, a.features[:i]...)
	out = append(out, a.features[i+1:]...)
	return intern(out)
}

// Extend returns the interned arity obtained by adding feature, which must
// be absent.
func (a *Arity) Extend(feature Literal) *Arity {
	if a.Has(feature) {
		panic("arity: Extend of an already-present feature")
	}
	out := make([]Literal, 0, len(a.features)+1)
	i, _ := a.IndexOf(feature)
	out = append(out, a.features[:i]...)
	out = append(out, feature)
	out = append(out, a.features[i:]...)
	return intern(out)
}

// Project returns the interned arity for the sorted subset of features
// named in subset, which must each be present in a.
func (a *Arity) Project(subset []Literal) *Arity {
	return Get(subset)
}

// ComputeSubsetMask returns an integer whose bit i is set iff
// a.Features()[i] appears in other.
func (a *Arity) ComputeSubsetMask(other *Arity) uint64 {
	var mask uint64
	for i, f := range a.features {
		if other.Has(f) {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// LessThan orders arities by size, then feature-wise literal order.
func (a *Arity) LessThan(other *Arity) bool {
	if len(a.features) != len(other.features) {
		return len(a.features) < len(other.features)
	}
	for i := range a.features {
		if Equal(a.features[i], other.features[i]) {
			continue
		}
		return Less(a.features[i], other.features[i])
	}
	return false
}

// SubTuple returns the interned tuple arity of the largest prefix width n
// such that feature n (1-based) equals the literal at position n-1,
// mirroring Arity::GetSubTuple in the gooz original (original_source/
// src/store/arity.cc): it is used to test whether a record arity is
// tuple-compatible for some leading width, even when the whole arity isn't
// a tuple arity.
func (a *Arity) SubTuple(mkSmallInt func(int64) Literal) (*Arity, bool) {
	for i := len(a.features) - 1; i >= 0; i-- {
		si, ok := a.features[i].(interface{ SmallIntValue() (int64, bool) })
		if !ok {
			continue
		}
		v, isSmall := si.SmallIntValue()
		if isSmall && v == int64(i+1) {
			return GetTuple(i+1, mkSmallInt), true
		}
	}
	return nil, false
}
