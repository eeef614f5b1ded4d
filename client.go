package loom

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/loomwm/loom/internal/cq"
	"github.com/loomwm/loom/internal/objstore"
	"github.com/loomwm/loom/protocol"
	"github.com/loomwm/loom/wire"
	"github.com/rs/zerolog"
)

const writeTimeout = time.Second

// Client represents one connected peer: its connection, its receive
// parser, its object namespace, and its FIFO outgoing event queue.
// All fields except conn and done are owned by the loop goroutine;
// the reader goroutine only reads from the socket and hands copies of
// the bytes over the ingress queue.
type Client struct {
	display *Display
	log     zerolog.Logger
	conn    *net.UnixConn
	parser  *wire.Parser
	store   *objstore.Store

	events []*wire.MessageBuilder
	fatal  error
	gone   bool

	done  chan struct{}
	close sync.Once
}

func newClient(display *Display, conn *net.UnixConn, serial uint64) *Client {
	client := Client{
		display: display,
		log:     display.log.With().Uint64("client", serial).Logger(),
		conn:    conn,
		parser:  wire.NewParser(display.cfg.RecvBuffer),
		store:   objstore.New(protocol.DisplayID),
		done:    make(chan struct{}),
	}
	client.store.Add(&displayResource{client: &client})

	return &client
}

// listen reads from the socket until it closes, funneling byte chunks
// into the loop's ingress queue. It runs on its own goroutine; the
// bytes are parsed and dispatched on the loop goroutine.
func (c *Client) listen(ingress *cq.Queue[func()]) {
	buf := make([]byte, 4096)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case <-c.done:
				return
			case ingress.Add() <- func() { c.display.ingest(c, data) }:
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.log.Debug().Err(err).Msg("connection read failed")
			}
			select {
			case <-c.done:
			case ingress.Add() <- func() { c.display.disconnect(c) }:
			}
			return
		}
	}
}

// alive reports whether the client is still being served. A client
// with a latched fatal error or a closed connection only awaits
// teardown at the end of the current dispatch pass.
func (c *Client) alive() bool {
	return c.fatal == nil && !c.gone
}

// post queues an event for delivery to the client. Events go out in
// post order, matching request order.
func (c *Client) post(ev *wire.MessageBuilder) {
	c.events = append(c.events, ev)
}

// postError queues a display error event naming the offending object.
func (c *Client) postError(object, code uint32, text string) {
	ev := wire.NewMessage(protocol.DisplayID, protocol.EvDisplayError)
	ev.WriteUint(object)
	ev.WriteUint(code)
	ev.WriteString(text)
	c.post(ev)
}

// flush writes all queued events to the connection. A write failure
// marks the client for teardown.
func (c *Client) flush() {
	events := c.events
	c.events = nil
	if len(events) == 0 || c.gone {
		return
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	for _, ev := range events {
		if err := ev.Build(c.conn); err != nil {
			if !errors.Is(err, net.ErrClosed) {
				c.log.Debug().Err(err).Msg("event write failed")
			}
			c.gone = true
			return
		}
	}
}

// shutdown stops the reader goroutine and closes the connection.
func (c *Client) shutdown() {
	c.close.Do(func() { close(c.done) })
	c.conn.Close()
}
