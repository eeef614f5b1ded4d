package loom

import (
	"github.com/loomwm/loom/protocol"
	"github.com/loomwm/loom/wire"
)

// Surfaces larger than this on either axis are rejected outright.
const maxSurfaceDim = 1 << 14

// displayResource is the display object in a client's namespace,
// always id 1. It handles the requests that create other objects.
type displayResource struct {
	id     uint32
	client *Client
}

func (d *displayResource) ID() uint32        { return d.id }
func (d *displayResource) SetID(id uint32)   { d.id = id }
func (d *displayResource) Interface() string { return protocol.IfaceDisplay }
func (d *displayResource) Delete()           {}

func (d *displayResource) Dispatch(msg *wire.Message) error {
	c := d.client

	switch msg.Op() {
	case protocol.OpDisplayCreateSurface:
		width := msg.ReadUint()
		height := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		if width == 0 || height == 0 || width > maxSurfaceDim || height > maxSurfaceDim {
			c.postError(d.id, protocol.ErrBadSize, "invalid surface dimensions")
			return nil
		}

		s := c.display.reg.Create(c, width, height)
		c.store.Add(s)
		c.log.Debug().Uint32("surface", s.id).Uint32("width", width).Uint32("height", height).Msg("surface created")

		ev := wire.NewMessage(protocol.DisplayID, protocol.EvDisplaySurfaceCreated)
		ev.WriteUint(s.id)
		c.post(ev)
		return nil

	case protocol.OpDisplayCreateBuffer:
		width := msg.ReadUint()
		height := msg.ReadUint()
		format := msg.ReadUint()
		size := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		if !protocol.ValidFormat(format) {
			c.postError(d.id, protocol.ErrBadFormat, "unknown pixel format")
			return nil
		}
		if width == 0 || height == 0 || width > maxSurfaceDim || height > maxSurfaceDim || size != protocol.BufferSize(width, height) {
			c.postError(d.id, protocol.ErrBadSize, "buffer size does not match dimensions")
			return nil
		}

		buf, err := c.display.pool.Allocate(width, height, format, size)
		if err != nil {
			c.log.Warn().Err(err).Uint32("size", size).Msg("buffer allocation rejected")
			protocolErrorsTotal.WithLabelValues("no_memory").Inc()
			c.postError(d.id, protocol.ErrNoMemory, "allocation failed")
			return nil
		}
		buf.client = c
		c.store.Add(buf)
		c.log.Debug().Uint32("buffer", buf.id).Uint32("size", size).Msg("buffer created")

		ev := wire.NewMessage(protocol.DisplayID, protocol.EvDisplayBufferCreated)
		ev.WriteUint(buf.id)
		c.post(ev)
		return nil

	case protocol.OpDisplaySync:
		ev := wire.NewMessage(protocol.DisplayID, protocol.EvDisplayDone)
		ev.WriteUint(uint32(c.display.frame))
		c.post(ev)
		return nil

	default:
		return wire.UnknownOpError{Interface: d.Interface(), Op: msg.Op()}
	}
}
