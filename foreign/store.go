package foreign

import (
	stderrors "errors"

	"github.com/wippyai/wren-bridge/errors"
)

// ErrClosed is returned by Insert after the store has been closed.
var ErrClosed = stderrors.New("foreign store closed")

// Store owns the foreign objects of a single VM. Values are addressed by
// generation-checked handles and finalized at most once.
//
// A Store is not safe for concurrent use; it belongs to the goroutine that
// drives its VM.
type Store struct {
	arena      *arena
	observers  []Observer
	finalizing bool
	closed     bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		arena: newArena(),
	}
}

// Insert stores a fully initialized value of the given class and returns its
// handle.
func (s *Store) Insert(class *Class, value any) (Handle, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if class == nil {
		return 0, stderrors.New("foreign store: nil class")
	}

	h := s.arena.insert(class, value)
	s.notify(Event{
		Type:   EventAllocated,
		Handle: h,
		Class:  class,
		Value:  value,
	})
	return h, nil
}

// Get retrieves a live value by handle.
func (s *Store) Get(h Handle) (any, bool) {
	e := s.arena.lookup(h)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// GetTyped retrieves a value only if it belongs to the expected class.
func (s *Store) GetTyped(h Handle, class *Class) (any, bool) {
	e := s.arena.lookup(h)
	if e == nil || e.class != class {
		return nil, false
	}
	return e.value, true
}

// ClassOf returns the class of a live handle.
func (s *Store) ClassOf(h Handle) (*Class, bool) {
	e := s.arena.lookup(h)
	if e == nil {
		return nil, false
	}
	return e.class, true
}

// Live reports whether h names a live object.
func (s *Store) Live(h Handle) bool {
	return s.arena.lookup(h) != nil
}

// Finalize releases h and runs its class finalizer. It returns false if h is
// not live, so a second call for the same handle is a no-op. A panicking
// finalizer still counts as finalized; the panic is returned as a finalize
// error.
func (s *Store) Finalize(h Handle) (bool, error) {
	value, class, ok := s.arena.release(h)
	if !ok {
		return false, nil
	}

	err := s.runFinalizer(class, value)

	s.notify(Event{
		Type:   EventFinalized,
		Handle: h,
		Class:  class,
		Value:  value,
	})
	return true, err
}

func (s *Store) runFinalizer(class *Class, value any) (err error) {
	if class.Finalize == nil {
		return nil
	}
	s.finalizing = true
	defer func() {
		s.finalizing = false
		if r := recover(); r != nil {
			err = errors.FinalizerPanic(class.Name, r)
		}
	}()
	class.Finalize(value)
	return nil
}

// Finalizing reports whether a finalizer is currently running.
func (s *Store) Finalizing() bool {
	return s.finalizing
}

// Len returns the number of live objects.
func (s *Store) Len() int {
	return s.arena.live
}

// Each iterates over all live objects.
func (s *Store) Each(fn func(Handle, *Class, any) bool) {
	s.arena.each(fn)
}

// Subscribe adds an observer for lifecycle events.
func (s *Store) Subscribe(o Observer) {
	s.observers = append(s.observers, o)
}

// Unsubscribe removes an observer.
func (s *Store) Unsubscribe(o Observer) {
	for i, obs := range s.observers {
		if obs == o {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// Close finalizes every live object and stops accepting inserts. Errors
// from panicking finalizers are joined.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	// Collect handles first; finalizers must not observe a half-walked arena.
	var handles []Handle
	s.arena.each(func(h Handle, _ *Class, _ any) bool {
		handles = append(handles, h)
		return true
	})
	var errs []error
	for _, h := range handles {
		if _, err := s.Finalize(h); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

func (s *Store) notify(e Event) {
	for _, o := range s.observers {
		o.OnForeignEvent(e)
	}
}
