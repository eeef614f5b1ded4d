// Package client is the client-side half of the protocol: proxies for
// the display, surface, and buffer objects, with a flush/roundtrip
// queue in the style of the server side. Integration tests and
// external applications use it to talk to a compositor.
package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/loomwm/loom/internal/cq"
	"github.com/loomwm/loom/protocol"
	"github.com/loomwm/loom/wire"
)

// Display is the client's connection to a compositor. Methods queue
// requests; Flush or RoundTrip performs the actual socket work on the
// calling goroutine.
type Display struct {
	// Error, if set, is invoked for display error events.
	Error func(object, code uint32, message string)

	conn   *net.UnixConn
	done   chan struct{}
	close  sync.Once
	parser *wire.Parser
	queue  *cq.Queue[func() error]

	pendingSurfaces []*Surface
	pendingBuffers  []*Buffer
	syncs           []func(serial uint32)
}

// Dial connects to the compositor socket named by the environment.
func Dial() (*Display, error) {
	conn, err := wire.Dial()
	if err != nil {
		return nil, err
	}
	return Connect(conn), nil
}

// DialPath connects to the compositor socket at path.
func DialPath(path string) (*Display, error) {
	conn, err := wire.DialPath(path)
	if err != nil {
		return nil, err
	}
	return Connect(conn), nil
}

// Connect wraps an established connection. Close the display, not the
// connection, afterwards.
func Connect(conn *net.UnixConn) *Display {
	display := Display{
		conn:   conn,
		done:   make(chan struct{}),
		parser: wire.NewParser(0),
		queue:  cq.New[func() error](),
	}
	go display.listen()

	return &display
}

func (d *Display) listen() {
	buf := make([]byte, 4096)
	for {
		n, err := d.conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case <-d.done:
				return
			case d.queue.Add() <- func() error { return d.ingest(data) }:
			}
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-d.done:
			case d.queue.Add() <- func() error { return err }:
			}
			return
		}
	}
}

func (d *Display) Close() error {
	d.close.Do(func() { close(d.done) })
	d.queue.Stop()
	return d.conn.Close()
}

func (d *Display) ingest(data []byte) error {
	if err := d.parser.Feed(data); err != nil {
		return err
	}
	for msg := range d.parser.Messages() {
		if err := d.event(msg); err != nil {
			return err
		}
	}
	return d.parser.Err()
}

func (d *Display) event(msg *wire.Message) error {
	if msg.Object() != protocol.DisplayID {
		return wire.UnknownObjectError{ID: msg.Object()}
	}

	switch msg.Op() {
	case protocol.EvDisplayError:
		object := msg.ReadUint()
		code := msg.ReadUint()
		text := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
		if d.Error != nil {
			d.Error(object, code, text)
		}
		return nil

	case protocol.EvDisplaySurfaceCreated:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if len(d.pendingSurfaces) == 0 {
			return errors.New("surface_created event with no pending surface")
		}
		s := d.pendingSurfaces[0]
		d.pendingSurfaces = d.pendingSurfaces[1:]
		s.id = id
		return nil

	case protocol.EvDisplayBufferCreated:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if len(d.pendingBuffers) == 0 {
			return errors.New("buffer_created event with no pending buffer")
		}
		b := d.pendingBuffers[0]
		d.pendingBuffers = d.pendingBuffers[1:]
		b.id = id
		return nil

	case protocol.EvDisplayDone:
		serial := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if len(d.syncs) == 0 {
			return errors.New("done event with no pending sync")
		}
		done := d.syncs[0]
		d.syncs = d.syncs[1:]
		done(serial)
		return nil

	default:
		return wire.UnknownOpError{Interface: protocol.IfaceDisplay, Op: msg.Op()}
	}
}

func (d *Display) send(build func() *wire.MessageBuilder) {
	d.queue.Add() <- func() error { return build().Build(d.conn) }
}

// CreateSurface queues a surface creation request. The server assigns
// the id: complete a RoundTrip before issuing requests on the proxy.
func (d *Display) CreateSurface(width, height uint32) *Surface {
	s := &Surface{display: d, width: width, height: height}
	d.pendingSurfaces = append(d.pendingSurfaces, s)
	d.send(func() *wire.MessageBuilder {
		mb := wire.NewMessage(protocol.DisplayID, protocol.OpDisplayCreateSurface)
		mb.WriteUint(width)
		mb.WriteUint(height)
		return mb
	})
	return s
}

// CreateBuffer queues a buffer creation request for a width×height
// buffer of the given format. As with CreateSurface, the id arrives
// with the next roundtrip.
func (d *Display) CreateBuffer(width, height, format uint32) *Buffer {
	b := &Buffer{display: d, width: width, height: height, format: format}
	d.pendingBuffers = append(d.pendingBuffers, b)
	d.send(func() *wire.MessageBuilder {
		mb := wire.NewMessage(protocol.DisplayID, protocol.OpDisplayCreateBuffer)
		mb.WriteUint(width)
		mb.WriteUint(height)
		mb.WriteUint(format)
		mb.WriteUint(protocol.BufferSize(width, height))
		return mb
	})
	return b
}

// Sync queues a sync request; done runs when the server's done event
// arrives, after every earlier request has been processed.
func (d *Display) Sync(done func(serial uint32)) {
	d.syncs = append(d.syncs, done)
	d.send(func() *wire.MessageBuilder {
		return wire.NewMessage(protocol.DisplayID, protocol.OpDisplaySync)
	})
}

// Flush performs all queued work once: sends requests, processes
// received events. It returns all errors encountered.
func (d *Display) Flush() error {
	select {
	case queue := <-d.queue.Get():
		return errors.Join(flush(queue)...)
	default:
		return nil
	}
}

// RoundTrip sends a sync and blocks, flushing, until the matching
// done event arrives or the connection fails.
func (d *Display) RoundTrip() error {
	done := make(chan struct{})
	d.Sync(func(uint32) { close(done) })

	for {
		select {
		case <-done:
			return nil

		case queue := <-d.queue.Get():
			if errs := flush(queue); len(errs) > 0 {
				return errors.Join(errs...)
			}

		case <-d.done:
			return net.ErrClosed
		}
	}
}

func flush(queue []func() error) (errs []error) {
	for _, ev := range queue {
		err := ev()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("connection closed by compositor: %w", err)
			}
			errs = append(errs, err)
		}
	}
	return errs
}
