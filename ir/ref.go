package ir

import (
	"fmt"
	"math"
)

// Ref is an optional index into a slice of T.
//
// The type parameter only tags the reference with the kind of entity it
// points at, so a Ref[Material] cannot be passed where a Ref[Texture] is
// expected. The zero value is index 0; absence is spelled None[T]().
type Ref[T any] uint32

// none is the sentinel that marks an unset reference.
const none = math.MaxUint32

// None returns the unset reference.
func None[T any]() Ref[T] { return Ref[T](none) }

// RefTo returns a reference to element i.
// It panics if i is negative or does not fit below the sentinel.
func RefTo[T any](i int) Ref[T] {
	if i < 0 || uint64(i) >= none {
		panic(fmt.Sprintf("ir: reference index %d out of range", i))
	}
	return Ref[T](i)
}

// Valid reports whether r is set.
func (r Ref[T]) Valid() bool { return r != none }

// Index returns the referenced index and whether r is set.
func (r Ref[T]) Index() (int, bool) {
	if r == none {
		return 0, false
	}
	return int(r), true
}

// Resolve returns a pointer to the referenced element of s.
// It returns nil when r is unset and a *RefError when r is out of range.
func (r Ref[T]) Resolve(s []T) (*T, error) {
	i, ok := r.Index()
	if !ok {
		return nil, nil
	}
	if i >= len(s) {
		return nil, &RefError{Kind: kindName[T](), Index: i, Len: len(s)}
	}
	return &s[i], nil
}

// String implements fmt.Stringer.
func (r Ref[T]) String() string {
	if r == none {
		return kindName[T]() + "(none)"
	}
	return fmt.Sprintf("%s(%d)", kindName[T](), uint32(r))
}

func kindName[T any]() string {
	var zero T
	switch any(zero).(type) {
	case Texture:
		return "texture"
	case Material:
		return "material"
	case Mesh:
		return "mesh"
	case Instance:
		return "instance"
	default:
		return fmt.Sprintf("%T", zero)
	}
}
