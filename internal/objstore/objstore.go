// Package objstore tracks the protocol objects belonging to a single
// client. Ids are allocated monotonically and never reused within the
// client's lifetime, so a stale id held after a destroy can never
// alias a newer object.
package objstore

import (
	"iter"

	"github.com/loomwm/loom/wire"
)

type Store struct {
	objects map[uint32]wire.Object
	nextID  uint32
}

func New(start uint32) *Store {
	return &Store{
		objects: make(map[uint32]wire.Object),
		nextID:  start,
	}
}

// Add registers obj, assigning it the next free id if it does not
// already carry one.
func (s *Store) Add(obj wire.Object) {
	id := obj.ID()
	if id == 0 {
		id = s.nextID
		obj.SetID(id)
		s.nextID++
	}

	s.objects[id] = obj
}

func (s *Store) Get(id uint32) wire.Object {
	return s.objects[id]
}

// Delete removes the object with the given id. The id remains burned:
// it is never handed out again by Add.
func (s *Store) Delete(id uint32) {
	obj := s.objects[id]
	delete(s.objects, id)
	if obj != nil {
		obj.Delete()
	}
}

func (s *Store) Len() int {
	return len(s.objects)
}

// All iterates over every object in the store.
func (s *Store) All() iter.Seq[wire.Object] {
	return func(yield func(wire.Object) bool) {
		for _, obj := range s.objects {
			if !yield(obj) {
				return
			}
		}
	}
}
