package client

import (
	"github.com/loomwm/loom/protocol"
	"github.com/loomwm/loom/wire"
)

// Surface is the client-side proxy for a surface object.
type Surface struct {
	id      uint32
	display *Display
	width   uint32
	height  uint32
}

// ID is the server-assigned object id, zero until the creating
// roundtrip completes.
func (s *Surface) ID() uint32 {
	return s.id
}

func (s *Surface) Attach(b *Buffer) {
	s.display.send(func() *wire.MessageBuilder {
		mb := wire.NewMessage(s.id, protocol.OpSurfaceAttach)
		mb.WriteUint(b.id)
		return mb
	})
}

func (s *Surface) Damage(x, y, width, height int32) {
	s.display.send(func() *wire.MessageBuilder {
		mb := wire.NewMessage(s.id, protocol.OpSurfaceDamage)
		mb.WriteInt(x)
		mb.WriteInt(y)
		mb.WriteInt(width)
		mb.WriteInt(height)
		return mb
	})
}

func (s *Surface) Commit() {
	s.display.send(func() *wire.MessageBuilder {
		return wire.NewMessage(s.id, protocol.OpSurfaceCommit)
	})
}

func (s *Surface) Destroy() {
	s.display.send(func() *wire.MessageBuilder {
		return wire.NewMessage(s.id, protocol.OpSurfaceDestroy)
	})
}
