package wire

import (
	"errors"
	"fmt"
)

// ErrOverflow is returned by Parser.Feed when a connection has
// buffered more undecoded bytes than it is allowed to.
var ErrOverflow = errors.New("receive buffer overflow")

// ErrPayloadTooLarge indicates a message whose declared payload length
// exceeds MaxPayload, on either the encode or the decode side.
var ErrPayloadTooLarge = errors.New("payload length exceeds maximum")

// ErrAddrInUse is returned by Listen when another live process already
// holds the rendezvous socket.
var ErrAddrInUse = errors.New("socket address already in use")

// UnknownOpError is returned by Object.Dispatch when given a message
// with an opcode the object's type does not define.
type UnknownOpError struct {
	Interface string
	Op        uint16
}

func (err UnknownOpError) Error() string {
	return fmt.Sprintf("unknown opcode for %v: %v", err.Interface, err.Op)
}

// UnknownObjectError indicates a message that targets an object id
// that does not exist in the sender's namespace.
type UnknownObjectError struct {
	ID uint32
}

func (err UnknownObjectError) Error() string {
	return fmt.Sprintf("unknown target object id: %v", err.ID)
}
