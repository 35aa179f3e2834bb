package slices

import "sort"

// Map applies mapper to each element and collects results.
func Map[T any, R any](sli []T, mapper func(v T) R) []R {
	ret := make([]R, len(sli))
	for i, v := range sli {
		ret[i] = mapper(v)
	}
	return ret
}

// Filter returns elements for which predicate holds, in order.
func Filter[T any](sli []T, predicate func(T) bool) []T {
	ret := []T{}
	for _, v := range sli {
		if predicate(v) {
			ret = append(ret, v)
		}
	}
	return ret
}

// First returns the first element for which predicate holds.
func First[T any](sli []T, predicate func(T) bool) (T, bool) {
	for _, v := range sli {
		if predicate(v) {
			return v, true
		}
	}
	return *new(T), false
}

// Contains reports whether any element satisfies predicate.
func Contains[T any](sli []T, predicate func(T) bool) bool {
	_, ok := First(sli, predicate)
	return ok
}

// ContainsValue reports whether sli has an element equal to item.
func ContainsValue[T comparable](sli []T, item T) bool {
	for _, v := range sli {
		if v == item {
			return true
		}
	}
	return false
}

// KeysOf collects keys of a map. Order is unstable.
func KeysOf[T any, K comparable](m map[K]T) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// ValuesOf collects values of a map. Order is unstable.
func ValuesOf[T any, K comparable](m map[K]T) []T {
	vals := make([]T, 0, len(m))
	for _, v := range m {
		vals = append(vals, v)
	}
	return vals
}

// ToMap indexes sli by getkey. Later elements win on key collision.
func ToMap[T any, K comparable](sli []T, getkey func(v T) K) map[K]T {
	m := make(map[K]T, len(sli))
	for _, v := range sli {
		m[getkey(v)] = v
	}
	return m
}

// Sorted returns a sorted copy of sli. sli itself is left as it is.
func Sorted[T any](sli []T, less func(a, b T) bool) []T {
	ret := make([]T, len(sli))
	copy(ret, sli)
	sort.Slice(ret, func(i, j int) bool { return less(ret[i], ret[j]) })
	return ret
}

// Concat joins slices into one.
func Concat[T any](sli ...[]T) []T {
	total := 0
	for _, s := range sli {
		total += len(s)
	}
	ret := make([]T, 0, total)
	for _, s := range sli {
		ret = append(ret, s...)
	}
	return ret
}
