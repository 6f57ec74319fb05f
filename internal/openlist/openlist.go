// Package openlist implements a set representation that can describe both a
// finite allow-list and its complement ("everything except these"). It is the
// single representation of author filters, feed filters, and ban sets in the
// query and visibility engines, replacing nil-means-everything conventions.
package openlist

// List is an immutable possibly-infinite set. If Inclusive, the set is
// exactly Items; otherwise the set is everything except Items. Items is kept
// ordered by first insertion and free of duplicates.
type List[T comparable] struct {
	items     []T
	inclusive bool
}

// Of returns the finite set containing exactly the given items.
func Of[T comparable](items ...T) List[T] {
	return List[T]{items: dedupe(items), inclusive: true}
}

// Excluding returns the set of everything except the given items.
func Excluding[T comparable](items ...T) List[T] {
	return List[T]{items: dedupe(items), inclusive: false}
}

// Nothing returns the empty set.
func Nothing[T comparable]() List[T] {
	return List[T]{inclusive: true}
}

// Everything returns the universal set.
func Everything[T comparable]() List[T] {
	return List[T]{inclusive: false}
}

// Items returns a copy of the underlying item slice.
func (l List[T]) Items() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Inclusive reports whether the list enumerates its members (true) or its
// complement (false).
func (l List[T]) Inclusive() bool { return l.inclusive }

// IsEmpty reports whether the set has no members.
func (l List[T]) IsEmpty() bool { return l.inclusive && len(l.items) == 0 }

// IsEverything reports whether the set contains every possible value.
func (l List[T]) IsEverything() bool { return !l.inclusive && len(l.items) == 0 }

// Includes reports whether x is a member of the set.
func (l List[T]) Includes(x T) bool {
	return l.inclusive == contains(l.items, x)
}

// Inverse returns the complement of the set.
func (l List[T]) Inverse() List[T] {
	return List[T]{items: l.items, inclusive: !l.inclusive}
}

// Union returns the set of values in l or in other.
func (l List[T]) Union(other List[T]) List[T] {
	switch {
	case l.inclusive && other.inclusive:
		return List[T]{items: dedupe(append(append([]T{}, l.items...), other.items...)), inclusive: true}
	case l.inclusive && !other.inclusive:
		// everything except (other.items minus l.items)
		return List[T]{items: subtract(other.items, l.items), inclusive: false}
	case !l.inclusive && other.inclusive:
		return List[T]{items: subtract(l.items, other.items), inclusive: false}
	default:
		return List[T]{items: intersect(l.items, other.items), inclusive: false}
	}
}

// Intersection returns the set of values in both l and other.
func (l List[T]) Intersection(other List[T]) List[T] {
	switch {
	case l.inclusive && other.inclusive:
		return List[T]{items: intersect(l.items, other.items), inclusive: true}
	case l.inclusive && !other.inclusive:
		return List[T]{items: subtract(l.items, other.items), inclusive: true}
	case !l.inclusive && other.inclusive:
		return List[T]{items: subtract(other.items, l.items), inclusive: true}
	default:
		return List[T]{items: dedupe(append(append([]T{}, l.items...), other.items...)), inclusive: false}
	}
}

// Difference returns the set of values in l but not in other. It is
// equivalent to l.Intersection(other.Inverse()).
func (l List[T]) Difference(other List[T]) List[T] {
	return l.Intersection(other.Inverse())
}

// Equal reports whether two lists describe the same set. Item order is
// ignored.
func (l List[T]) Equal(other List[T]) bool {
	if l.inclusive != other.inclusive || len(l.items) != len(other.items) {
		return false
	}
	for _, x := range l.items {
		if !contains(other.items, x) {
			return false
		}
	}
	return true
}

func dedupe[T comparable](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[T]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, x := range items {
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}

func contains[T comparable](items []T, x T) bool {
	for _, it := range items {
		if it == x {
			return true
		}
	}
	return false
}

// intersect keeps the items of a that also appear in b.
func intersect[T comparable](a, b []T) []T {
	var out []T
	for _, x := range dedupe(a) {
		if contains(b, x) {
			out = append(out, x)
		}
	}
	return out
}

// subtract keeps the items of a that do not appear in b.
func subtract[T comparable](a, b []T) []T {
	var out []T
	for _, x := range dedupe(a) {
		if !contains(b, x) {
			out = append(out, x)
		}
	}
	return out
}
