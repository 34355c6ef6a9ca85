// Package resources implements the type-indexed heterogeneous container
// (Resources) that threads data between CmdBlocks in one CmdExecution. The
// generic type parameter TS is a phantom type-state tag (see resources/ts)
// marking which lifecycle stage the container has reached; it exists purely
// for documentation and for the explicit precondition checks CmdBlocks
// perform at entry (SPEC_FULL.md §5 notes this substitutes for the
// compile-time type-state the source language used).
//
// Go methods cannot introduce type parameters beyond their receiver's, so
// the typed operations (Insert, Remove, Borrow, ...) are free functions
// parameterized over both TS and the value type T, rather than methods on
// Resources[TS].
package resources

import (
	"fmt"
	"reflect"
	"sync"
)

// ResourceFetchError is returned when a CmdBlock's declared input type is
// not present in Resources. It is fatal to the enclosing CmdExecution.
type ResourceFetchError struct {
	TypeName string
}

func (e *ResourceFetchError) Error() string {
	return fmt.Sprintf("resource not present in Resources: %s", e.TypeName)
}

type entry struct {
	mu      sync.RWMutex
	value   any
	present bool
}

// store is the shared backing map. It outlives any one Resources[TS]
// wrapper so Advance can move the same data across type-state stages
// without copying.
type store struct {
	mu      sync.Mutex
	entries map[reflect.Type]*entry
}

func newStore() *store {
	return &store{entries: make(map[reflect.Type]*entry)}
}

func (s *store) entryFor(t reflect.Type, create bool) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[t]
	if !ok {
		if !create {
			return nil
		}
		e = &entry{}
		s.entries[t] = e
	}
	return e
}

// Resources is the type-indexed container. TS documents the lifecycle
// stage; it has no runtime representation.
type Resources[TS any] struct {
	s *store
}

// New returns an empty Resources. Callers conventionally instantiate it as
// Resources[ts.Empty] and Advance it forward as they populate it.
func New[TS any]() *Resources[TS] {
	return &Resources[TS]{s: newStore()}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// TypeName returns the short type name used in CmdBlock diagnostics for T.
func TypeName[T any]() string {
	return typeOf[T]().String()
}

// Insert stores v under its static type T, overwriting any existing value
// of that type.
func Insert[TS any, T any](r *Resources[TS], v T) {
	e := r.s.entryFor(typeOf[T](), true)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = v
	e.present = true
}

// Contains reports whether a value of type T is currently present.
func Contains[TS any, T any](r *Resources[TS]) bool {
	e := r.s.entryFor(typeOf[T](), false)
	if e == nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.present
}

// Remove takes the value of type T out of Resources, if present.
func Remove[TS any, T any](r *Resources[TS]) (T, bool) {
	var zero T
	e := r.s.entryFor(typeOf[T](), false)
	if e == nil {
		return zero, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.present {
		return zero, false
	}
	v, _ := e.value.(T)
	e.value = nil
	e.present = false
	return v, true
}

// TryRemove is Remove but returns *ResourceFetchError instead of ok=false,
// matching the CmdBlock.InputT fetch contract (SPEC_FULL.md §4.6).
func TryRemove[TS any, T any](r *Resources[TS]) (T, error) {
	v, ok := Remove[TS, T](r)
	if !ok {
		return v, &ResourceFetchError{TypeName: TypeName[T]()}
	}
	return v, nil
}

// BorrowGuard is a released-once read or write handle on one resource
// value. Release must be called exactly once; it is safe to defer.
type BorrowGuard[T any] struct {
	e        *entry
	write    bool
	get      func() T
	released bool
}

// Get returns the guarded value.
func (g *BorrowGuard[T]) Get() T { return g.get() }

// Set overwrites the guarded value. Only valid on a guard obtained via
// BorrowMut.
func (g *BorrowGuard[T]) Set(v T) {
	if !g.write {
		panic("bug in the framework: Set called on a read-only borrow")
	}
	g.e.value = v
}

// Release ends the borrow, unlocking the entry for other borrowers.
func (g *BorrowGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	if g.write {
		g.e.mu.Unlock()
	} else {
		g.e.mu.RUnlock()
	}
}

// Borrow takes a shared (read) lock on the value of type T. The caller
// must call Release on the returned guard.
func Borrow[TS any, T any](r *Resources[TS]) (*BorrowGuard[T], error) {
	e := r.s.entryFor(typeOf[T](), false)
	if e == nil {
		return nil, &ResourceFetchError{TypeName: TypeName[T]()}
	}
	e.mu.RLock()
	if !e.present {
		e.mu.RUnlock()
		return nil, &ResourceFetchError{TypeName: TypeName[T]()}
	}
	return &BorrowGuard[T]{e: e, get: func() T { v, _ := e.value.(T); return v }}, nil
}

// BorrowMut takes an exclusive (write) lock on the value of type T. The
// caller must call Release on the returned guard.
func BorrowMut[TS any, T any](r *Resources[TS]) (*BorrowGuard[T], error) {
	e := r.s.entryFor(typeOf[T](), false)
	if e == nil {
		return nil, &ResourceFetchError{TypeName: TypeName[T]()}
	}
	e.mu.Lock()
	if !e.present {
		e.mu.Unlock()
		return nil, &ResourceFetchError{TypeName: TypeName[T]()}
	}
	return &BorrowGuard[T]{e: e, write: true, get: func() T { v, _ := e.value.(T); return v }}, nil
}

// Advance moves the same backing store to a new type-state tag. It is the
// Go substitute for the source's consuming `into_inner` transition: the
// caller attests that TFrom's preconditions have been met and TTo's
// preconditions now hold.
func Advance[TFrom any, TTo any](r *Resources[TFrom]) *Resources[TTo] {
	return &Resources[TTo]{s: r.s}
}
