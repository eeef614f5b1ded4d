package objstore

import (
	"testing"

	"github.com/loomwm/loom/wire"
)

type obj struct {
	id      uint32
	deleted bool
}

func (o *obj) ID() uint32                       { return o.id }
func (o *obj) SetID(id uint32)                  { o.id = id }
func (o *obj) Interface() string                { return "test" }
func (o *obj) Dispatch(msg *wire.Message) error { return nil }
func (o *obj) Delete()                          { o.deleted = true }

func TestAddAssignsMonotonicIDs(t *testing.T) {
	s := New(1)

	a, b := new(obj), new(obj)
	s.Add(a)
	s.Add(b)
	if a.id != 1 || b.id != 2 {
		t.Fatalf("expected ids 1 and 2, got %v and %v", a.id, b.id)
	}
	if s.Get(1) != a || s.Get(2) != b {
		t.Fatal("lookup mismatch")
	}
}

func TestDeleteBurnsID(t *testing.T) {
	s := New(1)

	a := new(obj)
	s.Add(a)
	s.Delete(a.id)
	if !a.deleted {
		t.Fatal("Delete hook not invoked")
	}
	if s.Get(a.id) != nil {
		t.Fatal("deleted id still resolves")
	}

	b := new(obj)
	s.Add(b)
	if b.id == a.id {
		t.Fatalf("id %v reused after delete", b.id)
	}
}

func TestAddKeepsExistingID(t *testing.T) {
	s := New(1)

	fixed := &obj{id: 10}
	s.Add(fixed)
	if s.Get(10) != fixed {
		t.Fatal("object with preset id not stored under it")
	}

	next := new(obj)
	s.Add(next)
	if next.id != 1 {
		t.Fatalf("preset id disturbed the allocator: got %v", next.id)
	}
}

func TestDeleteUnknownIDIsNoOp(t *testing.T) {
	s := New(1)
	s.Delete(42)
	if s.Len() != 0 {
		t.Fatalf("unexpected length %v", s.Len())
	}
}
