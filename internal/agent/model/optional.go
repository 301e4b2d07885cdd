package model

// Optional holds a value that a stage may or may not have populated.
// The zero value is "absent"; callers read it through OrElse with an explicit default.
type Optional[T any] struct {
	value T
	set   bool
}

// Some wraps v as a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an absent value.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it was present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether the value is present.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// OrElse returns the value if present, def otherwise.
func (o Optional[T]) OrElse(def T) T {
	if !o.set {
		return def
	}
	return o.value
}
