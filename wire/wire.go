// Package wire implements the compositor's wire format: a fixed
// 8-byte header identifying a target object, an opcode, and a payload
// length, followed by that many payload bytes. All integers are
// little-endian.
package wire

// HeaderSize is the size of the fixed message header: target object id
// (u32), opcode (u16), payload length (u16).
const HeaderSize = 8

// MaxPayload is the largest payload length accepted by both the
// encoder and the decoder. The limit is enforced identically on both
// sides so that a conforming peer can never produce a message the
// other side refuses to frame.
const MaxPayload = 4096

// DefaultRecvBuffer bounds how many buffered-but-undecoded bytes a
// connection may accumulate before it is considered hostile.
const DefaultRecvBuffer = 64 * 1024

// Object represents a protocol object in a client's namespace.
type Object interface {
	ID() uint32
	SetID(id uint32)

	// Interface names the object's protocol type, e.g. "surface".
	Interface() string

	// Dispatch performs the operation requested by the message.
	Dispatch(msg *Message) error

	// Delete is called when the object is removed from its namespace.
	Delete()
}

func padding(n uint32) uint32 {
	return (4 - n%4) % 4
}
