package client

import (
	"github.com/loomwm/loom/protocol"
	"github.com/loomwm/loom/wire"
)

// Buffer is the client-side proxy for a buffer object.
type Buffer struct {
	id      uint32
	display *Display
	width   uint32
	height  uint32
	format  uint32
}

// ID is the server-assigned object id, zero until the creating
// roundtrip completes.
func (b *Buffer) ID() uint32 {
	return b.id
}

func (b *Buffer) Width() uint32  { return b.width }
func (b *Buffer) Height() uint32 { return b.height }
func (b *Buffer) Format() uint32 { return b.format }

// Destroy drops the client's handle on the buffer. The server frees
// the memory once no surface attachment references it either.
func (b *Buffer) Destroy() {
	b.display.send(func() *wire.MessageBuilder {
		return wire.NewMessage(b.id, protocol.OpBufferDestroy)
	})
}
