package pointer

// Ref returns pointer to the given value.
func Ref[T any](v T) *T {
	return &v
}

// Deref dereferences p, or returns zero value when p is nil.
func Deref[T any](p *T) T {
	if p == nil {
		return *new(T)
	}
	return *p
}

// SafeDeref dereferences p into (value, true), or (zero, false) when p is nil.
func SafeDeref[T any](p *T) (T, bool) {
	if p == nil {
		return *new(T), false
	}
	return *p, true
}
