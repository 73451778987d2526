// Package strided provides typed views over externally owned memory.
//
// A Region decouples the logical layout of a vertex attribute (one T per
// element) from its physical layout (elements may be interleaved with other
// attributes, so consecutive elements are stride bytes apart). A Region never
// owns or copies the memory it views.
package strided

import (
	"errors"
	"fmt"
	"unsafe"
)

// Errors returned by Region constructors and accessors.
var (
	// ErrOutOfBounds is matched by every BoundsError.
	ErrOutOfBounds = errors.New("strided: index out of bounds")

	// ErrStrideTooSmall is returned when stride is smaller than the element size.
	ErrStrideTooSmall = errors.New("strided: stride smaller than element size")

	// ErrBufferTooSmall is returned when the buffer cannot hold count elements.
	ErrBufferTooSmall = errors.New("strided: buffer too small")
)

// BoundsError reports an access beyond the declared element count.
// It always signals a defect in whoever produced the indices.
type BoundsError struct {
	Index int
	Count int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("strided: index %d out of bounds (count %d)", e.Index, e.Count)
}

// Is reports whether target is ErrOutOfBounds.
func (e *BoundsError) Is(target error) bool { return target == ErrOutOfBounds }

// Region is a bounds-checked view of count elements of type T placed
// stride bytes apart. The zero Region is empty.
type Region[T any] struct {
	base   unsafe.Pointer
	stride int
	count  int
}

// New creates a Region over buf starting at byte offset.
// The caller keeps ownership of buf and must keep it alive while the
// Region is in use.
func New[T any](buf []byte, offset, stride, count int) (Region[T], error) {
	size := int(unsafe.Sizeof(*new(T)))
	if stride < size {
		return Region[T]{}, fmt.Errorf("%w: stride %d, size %d", ErrStrideTooSmall, stride, size)
	}
	if offset < 0 || count < 0 {
		return Region[T]{}, fmt.Errorf("%w: offset %d, count %d", ErrBufferTooSmall, offset, count)
	}
	if count == 0 {
		return Region[T]{stride: stride}, nil
	}
	need := offset + (count-1)*stride + size
	if need > len(buf) {
		return Region[T]{}, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, need, len(buf))
	}
	return Region[T]{
		base:   unsafe.Pointer(&buf[offset]),
		stride: stride,
		count:  count,
	}, nil
}

// Of returns a Region viewing every element of s with its natural stride.
func Of[T any](s []T) Region[T] {
	stride := int(unsafe.Sizeof(*new(T)))
	if len(s) == 0 {
		return Region[T]{stride: stride}
	}
	return Region[T]{
		base:   unsafe.Pointer(unsafe.SliceData(s)),
		stride: stride,
		count:  len(s),
	}
}

// Get returns a pointer to element i.
// It fails with a *BoundsError when (i+1)*stride exceeds count*stride.
func (r Region[T]) Get(i int) (*T, error) {
	if i < 0 || i >= r.count {
		return nil, &BoundsError{Index: i, Count: r.count}
	}
	return (*T)(unsafe.Add(r.base, i*r.stride)), nil
}

// Set stores v at element i.
func (r Region[T]) Set(i int, v T) error {
	p, err := r.Get(i)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Len returns the number of elements in the region.
func (r Region[T]) Len() int { return r.count }

// Stride returns the distance in bytes between consecutive elements.
func (r Region[T]) Stride() int { return r.stride }
