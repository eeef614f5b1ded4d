package loom

import (
	"image"

	"github.com/loomwm/loom/protocol"
	"github.com/loomwm/loom/wire"
)

// Surface is a client-owned compositing unit. Pending state (attached
// buffer, damage) becomes visible to the render step only on commit.
type Surface struct {
	id     uint32
	serial uint64
	client *Client
	reg    *Registry

	width  uint32
	height uint32

	buf       *Buffer
	pending   []image.Rectangle
	committed []image.Rectangle
	ready     bool
}

func (s *Surface) ID() uint32        { return s.id }
func (s *Surface) SetID(id uint32)   { s.id = id }
func (s *Surface) Interface() string { return protocol.IfaceSurface }

func (s *Surface) Width() uint32  { return s.width }
func (s *Surface) Height() uint32 { return s.height }

// Serial is the surface's display-wide creation order, used to order
// frame entries deterministically.
func (s *Surface) Serial() uint64 { return s.serial }

// Buffer returns the currently attached buffer, or nil.
func (s *Surface) Buffer() *Buffer { return s.buf }

func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(s.width), int(s.height))
}

func (s *Surface) Dispatch(msg *wire.Message) error {
	switch msg.Op() {
	case protocol.OpSurfaceAttach:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		obj := s.client.store.Get(id)
		if obj == nil {
			return wire.UnknownObjectError{ID: id}
		}
		buf, ok := obj.(*Buffer)
		if !ok {
			s.client.postError(s.id, protocol.ErrBadBuffer, "attach target is not a buffer")
			return nil
		}
		if buf.width < s.width || buf.height < s.height {
			s.client.postError(s.id, protocol.ErrBadSize, "buffer smaller than surface")
			return nil
		}

		s.reg.Attach(s, buf)
		return nil

	case protocol.OpSurfaceDamage:
		x := msg.ReadInt()
		y := msg.ReadInt()
		w := msg.ReadInt()
		h := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}

		s.reg.Damage(s, image.Rect(int(x), int(y), int(x+w), int(y+h)))
		return nil

	case protocol.OpSurfaceCommit:
		s.reg.Commit(s)
		return nil

	case protocol.OpSurfaceDestroy:
		s.client.store.Delete(s.id)
		return nil

	default:
		return wire.UnknownOpError{Interface: s.Interface(), Op: msg.Op()}
	}
}

// Delete removes the surface from the registry, detaching any buffer.
// Invoked by the object store on explicit destroy and on client
// teardown.
func (s *Surface) Delete() {
	s.reg.remove(s)
}
