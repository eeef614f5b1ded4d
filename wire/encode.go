package wire

import (
	"bytes"
	"io"

	"github.com/loomwm/loom/internal/bin"
)

// MessageBuilder is an outgoing message under construction. Write
// errors are latched; Build reports the first one.
type MessageBuilder struct {
	object uint32
	op     uint16
	data   bytes.Buffer
	err    error
}

func NewMessage(object uint32, op uint16) *MessageBuilder {
	return &MessageBuilder{
		object: object,
		op:     op,
	}
}

func (mb *MessageBuilder) Object() uint32 {
	return mb.object
}

func (mb *MessageBuilder) Op() uint16 {
	return mb.op
}

func (mb *MessageBuilder) WriteInt(v int32) {
	if mb.err != nil {
		return
	}

	mb.err = bin.Write(&mb.data, v)
}

func (mb *MessageBuilder) WriteUint(v uint32) {
	if mb.err != nil {
		return
	}

	mb.err = bin.Write(&mb.data, v)
}

func (mb *MessageBuilder) WriteString(v string) {
	if mb.err != nil {
		return
	}

	pad := padding(uint32(len(v) + 1))
	bin.Write(&mb.data, uint32(len(v)+1))
	mb.data.WriteString(v)
	mb.data.WriteByte(0)
	for i := uint32(0); i < pad; i++ {
		mb.data.WriteByte(0)
	}
}

// Build frames the message and writes it to w. The builder should not
// be used again afterwards.
func (mb *MessageBuilder) Build(w io.Writer) error {
	if mb.err != nil {
		return mb.err
	}
	if mb.data.Len() > MaxPayload {
		return ErrPayloadTooLarge
	}

	msg := bytes.NewBuffer(make([]byte, 0, HeaderSize+mb.data.Len()))
	bin.Write(msg, mb.object)
	bin.Write(msg, uint32(mb.data.Len())<<16|uint32(mb.op))
	io.Copy(msg, &mb.data)

	_, err := w.Write(msg.Bytes())
	return err
}
