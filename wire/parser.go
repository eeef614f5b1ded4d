package wire

import (
	"encoding/binary"
	"iter"
)

// Parser reassembles messages from a connection's byte stream. Bytes
// go in via Feed in whatever chunks the socket produced; complete
// messages come out via Messages. A partial trailing message stays
// buffered until the bytes that complete it arrive.
type Parser struct {
	buf []byte
	max int
	err error
}

// NewParser returns a Parser that tolerates up to max buffered
// undecoded bytes. A max of zero means DefaultRecvBuffer.
func NewParser(max int) *Parser {
	if max <= 0 {
		max = DefaultRecvBuffer
	}
	return &Parser{max: max}
}

// Feed appends incoming bytes to the receive buffer. It returns
// ErrOverflow if the buffer would exceed the parser's limit, which
// callers should treat as fatal for the connection.
func (p *Parser) Feed(b []byte) error {
	if p.err != nil {
		return p.err
	}
	if len(p.buf)+len(b) > p.max {
		p.err = ErrOverflow
		return p.err
	}

	p.buf = append(p.buf, b...)
	return nil
}

// Buffered reports the number of undecoded bytes currently held.
func (p *Parser) Buffered() int {
	return len(p.buf)
}

// Err returns the parser's latched error, if any. Once set the parser
// refuses further input.
func (p *Parser) Err() error {
	return p.err
}

// Messages returns an iterator over the complete messages decodable
// from the buffered bytes. Each yielded message is consumed from the
// buffer; iteration stops at the first incomplete message. The
// sequence is restartable: ranging again continues with whatever has
// been fed since.
func (p *Parser) Messages() iter.Seq[*Message] {
	return func(yield func(*Message) bool) {
		for {
			msg, ok := p.next()
			if !ok {
				return
			}
			if !yield(msg) {
				return
			}
		}
	}
}

func (p *Parser) next() (*Message, bool) {
	if p.err != nil || len(p.buf) < HeaderSize {
		return nil, false
	}

	object := binary.LittleEndian.Uint32(p.buf[0:4])
	op := binary.LittleEndian.Uint16(p.buf[4:6])
	size := binary.LittleEndian.Uint16(p.buf[6:8])
	if size > MaxPayload {
		p.err = ErrPayloadTooLarge
		return nil, false
	}
	total := HeaderSize + int(size)
	if len(p.buf) < total {
		return nil, false
	}

	payload := make([]byte, size)
	copy(payload, p.buf[HeaderSize:total])
	n := copy(p.buf, p.buf[total:])
	p.buf = p.buf[:n]

	return newMessage(object, op, payload), true
}
