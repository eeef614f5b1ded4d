package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func frame(t *testing.T, object uint32, op uint16, build func(*MessageBuilder)) []byte {
	t.Helper()

	mb := NewMessage(object, op)
	if build != nil {
		build(mb)
	}
	var buf bytes.Buffer
	if err := mb.Build(&buf); err != nil {
		t.Fatalf("build message: %v", err)
	}
	return buf.Bytes()
}

func TestParserSingleMessage(t *testing.T) {
	p := NewParser(0)
	data := frame(t, 7, 3, func(mb *MessageBuilder) {
		mb.WriteUint(42)
		mb.WriteInt(-5)
	})
	if err := p.Feed(data); err != nil {
		t.Fatalf("feed: %v", err)
	}

	var msgs []*Message
	for msg := range p.Messages() {
		msgs = append(msgs, msg)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %v", len(msgs))
	}
	msg := msgs[0]
	if msg.Object() != 7 || msg.Op() != 3 {
		t.Fatalf("header mismatch: object=%v op=%v", msg.Object(), msg.Op())
	}
	if v := msg.ReadUint(); v != 42 {
		t.Fatalf("expected 42, got %v", v)
	}
	if v := msg.ReadInt(); v != -5 {
		t.Fatalf("expected -5, got %v", v)
	}
	if err := msg.Err(); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if p.Buffered() != 0 {
		t.Fatalf("expected empty buffer, got %v bytes", p.Buffered())
	}
}

func TestParserSplitFeeds(t *testing.T) {
	p := NewParser(0)
	data := frame(t, 1, 0, func(mb *MessageBuilder) { mb.WriteUint(100) })

	// Feed one byte at a time; the message completes only on the last.
	for i, b := range data {
		if err := p.Feed([]byte{b}); err != nil {
			t.Fatalf("feed byte %v: %v", i, err)
		}
		var n int
		for range p.Messages() {
			n++
		}
		if i < len(data)-1 && n != 0 {
			t.Fatalf("message yielded after %v of %v bytes", i+1, len(data))
		}
		if i == len(data)-1 && n != 1 {
			t.Fatalf("expected message after final byte, got %v", n)
		}
	}
}

func TestParserMultipleMessagesAndTrailingPartial(t *testing.T) {
	p := NewParser(0)
	var stream []byte
	stream = append(stream, frame(t, 1, 0, nil)...)
	stream = append(stream, frame(t, 2, 1, func(mb *MessageBuilder) { mb.WriteUint(9) })...)
	tail := frame(t, 3, 2, func(mb *MessageBuilder) { mb.WriteUint(1); mb.WriteUint(2) })
	stream = append(stream, tail[:len(tail)-3]...)

	if err := p.Feed(stream); err != nil {
		t.Fatalf("feed: %v", err)
	}
	var objects []uint32
	for msg := range p.Messages() {
		objects = append(objects, msg.Object())
	}
	if len(objects) != 2 || objects[0] != 1 || objects[1] != 2 {
		t.Fatalf("expected objects [1 2], got %v", objects)
	}

	// The rest of the partial message completes it.
	if err := p.Feed(tail[len(tail)-3:]); err != nil {
		t.Fatalf("feed tail: %v", err)
	}
	for msg := range p.Messages() {
		objects = append(objects, msg.Object())
	}
	if len(objects) != 3 || objects[2] != 3 {
		t.Fatalf("expected trailing message from object 3, got %v", objects)
	}
}

func TestParserRestartableSequence(t *testing.T) {
	p := NewParser(0)
	if err := p.Feed(frame(t, 1, 0, nil)); err != nil {
		t.Fatalf("feed: %v", err)
	}

	seq := p.Messages()
	var n int
	for range seq {
		n++
	}
	if n != 1 {
		t.Fatalf("expected 1 message on first pass, got %v", n)
	}

	// Ranging the same sequence again picks up newly fed bytes.
	if err := p.Feed(frame(t, 2, 0, nil)); err != nil {
		t.Fatalf("feed: %v", err)
	}
	for msg := range seq {
		if msg.Object() != 2 {
			t.Fatalf("expected object 2, got %v", msg.Object())
		}
		n++
	}
	if n != 2 {
		t.Fatalf("expected 2 messages total, got %v", n)
	}
}

func TestParserOverflow(t *testing.T) {
	p := NewParser(16)
	if err := p.Feed(make([]byte, 17)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if !errors.Is(p.Err(), ErrOverflow) {
		t.Fatalf("expected latched ErrOverflow, got %v", p.Err())
	}
	// Once latched, everything is refused.
	if err := p.Feed([]byte{0}); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow on subsequent feed, got %v", err)
	}
}

func TestParserRejectsOversizedPayloadDeclaration(t *testing.T) {
	var header [HeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], 1)
	binary.LittleEndian.PutUint16(header[4:6], 0)
	binary.LittleEndian.PutUint16(header[6:8], MaxPayload+1)

	p := NewParser(0)
	if err := p.Feed(header[:]); err != nil {
		t.Fatalf("feed: %v", err)
	}
	for range p.Messages() {
		t.Fatal("message yielded from oversized declaration")
	}
	if !errors.Is(p.Err(), ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", p.Err())
	}
}

func TestBuilderRejectsOversizedPayload(t *testing.T) {
	mb := NewMessage(1, 0)
	for i := 0; i < MaxPayload/4+1; i++ {
		mb.WriteUint(0)
	}
	var buf bytes.Buffer
	if err := mb.Build(&buf); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestStringRoundTrip(t *testing.T) {
	p := NewParser(0)
	data := frame(t, 1, 0, func(mb *MessageBuilder) {
		mb.WriteString("damage")
		mb.WriteUint(7)
	})
	if len(data)%4 != 0 {
		t.Fatalf("message not word-aligned: %v bytes", len(data))
	}
	if err := p.Feed(data); err != nil {
		t.Fatalf("feed: %v", err)
	}

	for msg := range p.Messages() {
		if v := msg.ReadString(); v != "damage" {
			t.Fatalf("expected %q, got %q", "damage", v)
		}
		if v := msg.ReadUint(); v != 7 {
			t.Fatalf("expected 7 after string, got %v", v)
		}
		if err := msg.Err(); err != nil {
			t.Fatalf("decode error: %v", err)
		}
	}
}

func TestMessageTruncatedPayload(t *testing.T) {
	p := NewParser(0)
	if err := p.Feed(frame(t, 1, 0, func(mb *MessageBuilder) { mb.WriteUint(1) })); err != nil {
		t.Fatalf("feed: %v", err)
	}
	for msg := range p.Messages() {
		msg.ReadUint()
		msg.ReadUint() // reads past the payload
		if msg.Err() == nil {
			t.Fatal("expected error reading past payload")
		}
	}
}
