package wire

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/loomwm/loom/internal/bin"
)

// Message is a single decoded message. Payload arguments are read
// cursor-style; the first decode error is latched and reported by Err,
// so a handler can read all of its arguments before checking.
type Message struct {
	object uint32
	op     uint16
	size   uint16
	data   bytes.Reader
	err    error
}

func newMessage(object uint32, op uint16, payload []byte) *Message {
	msg := Message{
		object: object,
		op:     op,
		size:   uint16(len(payload)),
	}
	msg.data.Reset(payload)
	return &msg
}

// Object is the id of the object the message targets.
func (m *Message) Object() uint32 {
	return m.object
}

// Op is the opcode of the message.
func (m *Message) Op() uint16 {
	return m.op
}

// Size is the payload length in bytes, excluding the header.
func (m *Message) Size() uint16 {
	return m.size
}

func (m *Message) Err() error {
	if errors.Is(m.err, io.EOF) || errors.Is(m.err, io.ErrUnexpectedEOF) {
		return io.ErrUnexpectedEOF
	}
	return m.err
}

func (m *Message) ReadInt() (v int32) {
	if m.err != nil {
		return
	}

	v, m.err = bin.Read[int32](&m.data)
	return v
}

func (m *Message) ReadUint() (v uint32) {
	if m.err != nil {
		return
	}

	v, m.err = bin.Read[uint32](&m.data)
	return v
}

func (m *Message) ReadString() string {
	if m.err != nil {
		return ""
	}

	length := m.ReadUint()
	if m.err != nil {
		return ""
	}
	if length == 0 {
		m.err = errors.New("empty string length")
		return ""
	}
	if int64(length) > m.data.Size() {
		m.err = io.ErrUnexpectedEOF
		return ""
	}
	pad := padding(length)

	var str strings.Builder
	str.Grow(int(length + pad))
	_, m.err = io.CopyN(&str, &m.data, int64(length+pad))
	if m.err != nil {
		return ""
	}
	v := str.String()
	if v[length-1] != 0 {
		m.err = errors.New("string is not null-terminated")
		return ""
	}

	return v[:length-1]
}
