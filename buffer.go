package loom

import (
	"errors"
	"image"

	ximage "deedles.dev/ximage/format"
	"github.com/loomwm/loom/internal/debug"
	"github.com/loomwm/loom/protocol"
	"github.com/loomwm/loom/wire"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
)

// ErrNoMemory is returned by BufferPool.Allocate when the pool's byte
// budget cannot cover the request. It is surfaced to the requesting
// client as a protocol error and is not fatal to anything.
var ErrNoMemory = errors.New("buffer pool budget exhausted")

// BufferPool owns the pixel memory backing all buffers of a display.
// It is only touched from the compositor loop's goroutine.
type BufferPool struct {
	log         zerolog.Logger
	budget      int64
	used        int64
	outstanding int
}

func NewBufferPool(logger zerolog.Logger, budget int64) *BufferPool {
	return &BufferPool{
		log:    logger,
		budget: budget,
	}
}

// Allocate reserves pixel memory for a width×height buffer of the
// given format. size must already be validated against the dimensions
// by the caller.
func (p *BufferPool) Allocate(width, height, format, size uint32) (*Buffer, error) {
	if p.budget > 0 && p.used+int64(size) > p.budget {
		return nil, ErrNoMemory
	}

	p.used += int64(size)
	p.outstanding++
	bufferBytesOutstanding.Set(float64(p.used))
	buffersOutstanding.Set(float64(p.outstanding))

	return &Buffer{
		pool:   p,
		width:  width,
		height: height,
		format: format,
		data:   make([]byte, size),
		held:   true,
	}, nil
}

// Outstanding reports the number of live allocations.
func (p *BufferPool) Outstanding() int {
	return p.outstanding
}

// Used reports the number of allocated bytes.
func (p *BufferPool) Used() int64 {
	return p.used
}

// release returns b's memory to the pool. It is only reached through
// the refcount bookkeeping; releasing the same buffer twice is an
// invariant violation, logged in production and fatal under
// LOOM_DEBUG.
func (p *BufferPool) release(b *Buffer) {
	if b.freed {
		if debug.Enabled() {
			panic("buffer released twice")
		}
		p.log.Warn().Uint32("buffer", b.id).Msg("buffer released twice")
		return
	}

	b.freed = true
	p.used -= int64(len(b.data))
	p.outstanding--
	bufferBytesOutstanding.Set(float64(p.used))
	buffersOutstanding.Set(float64(p.outstanding))
}

// Buffer is a block of pixel memory shared by reference across
// surface attachments. refs counts attachments; the creating client's
// handle pins the buffer separately until it destroys it or
// disconnects. Memory is released exactly once, when neither pin
// remains.
type Buffer struct {
	id     uint32
	client *Client
	pool   *BufferPool
	width  uint32
	height uint32
	format uint32
	data   []byte
	refs   int
	held   bool
	freed  bool
}

func (b *Buffer) ID() uint32        { return b.id }
func (b *Buffer) SetID(id uint32)   { b.id = id }
func (b *Buffer) Interface() string { return protocol.IfaceBuffer }

func (b *Buffer) Width() uint32  { return b.width }
func (b *Buffer) Height() uint32 { return b.height }
func (b *Buffer) Format() uint32 { return b.format }
func (b *Buffer) Len() int       { return len(b.data) }
func (b *Buffer) Refs() int      { return b.refs }

func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(b.width), int(b.height))
}

// Bytes exposes the raw pixel memory.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Image returns a draw.Image view of the pixel memory in the buffer's
// declared format.
func (b *Buffer) Image() draw.Image {
	var format ximage.Format = ximage.ARGB8888
	if b.format == protocol.FormatXRGB8888 {
		format = ximage.XRGB8888
	}

	return &ximage.Image{
		Format: format,
		Rect:   b.Bounds(),
		Pix:    b.data,
	}
}

func (b *Buffer) Dispatch(msg *wire.Message) error {
	switch msg.Op() {
	case protocol.OpBufferDestroy:
		b.client.store.Delete(b.id)
		return nil

	default:
		return wire.UnknownOpError{Interface: b.Interface(), Op: msg.Op()}
	}
}

// Delete drops the owning client's handle. Invoked by the object
// store on explicit destroy and on client teardown. Storage attached
// to a surface outlives the handle and is freed by the final detach.
func (b *Buffer) Delete() {
	if !b.held {
		return
	}
	b.held = false
	if b.refs == 0 {
		b.pool.release(b)
	}
}

func (b *Buffer) retain() {
	b.refs++
}

// unref drops one surface attachment. The buffer dies when the last
// attachment goes: its storage returns to the pool and its id leaves
// the owning client's namespace, never to be reused.
func (b *Buffer) unref() {
	b.refs--
	if b.refs != 0 {
		return
	}
	if b.held {
		b.held = false
		if b.client != nil {
			b.client.store.Delete(b.id)
		}
	}
	b.pool.release(b)
}
