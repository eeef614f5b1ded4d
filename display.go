package loom

import (
	"errors"
	"net"

	"github.com/loomwm/loom/internal/cq"
	"github.com/loomwm/loom/internal/debug"
	"github.com/loomwm/loom/internal/set"
	"github.com/loomwm/loom/protocol"
	"github.com/loomwm/loom/wire"
	"github.com/rs/zerolog"
)

// Display is one compositor instance: its configuration, surface
// registry, buffer pool, connected clients, and frame counter. It has
// no process-wide state; multiple displays can coexist, which the
// tests rely on. All methods below run on the loop goroutine.
type Display struct {
	cfg  Config
	log  zerolog.Logger
	pool *BufferPool
	reg  *Registry

	clients    set.Set[*Client]
	nextClient uint64
	frame      uint64
}

func NewDisplay(cfg Config, logger zerolog.Logger) (*Display, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	RegisterMetrics()

	return &Display{
		cfg:        cfg,
		log:        logger,
		pool:       NewBufferPool(logger, cfg.PoolBudget),
		reg:        newRegistry(logger),
		clients:    make(set.Set[*Client]),
		nextClient: 1,
	}, nil
}

func (d *Display) Registry() *Registry { return d.reg }
func (d *Display) Pool() *BufferPool   { return d.pool }

// FrameCount is the number of loop ticks so far, committed or not.
func (d *Display) FrameCount() uint64 { return d.frame }

// Clients reports the number of connected clients.
func (d *Display) Clients() int { return d.clients.Len() }

// addClient adopts an accepted connection and starts its reader.
func (d *Display) addClient(conn *net.UnixConn, ingress *cq.Queue[func()]) {
	if d.clients.Len() >= d.cfg.MaxClients {
		d.log.Warn().Int("max", d.cfg.MaxClients).Msg("connection refused, client limit reached")
		conn.Close()
		return
	}

	c := newClient(d, conn, d.nextClient)
	d.nextClient++
	d.clients.Add(c)
	clientsConnected.Set(float64(d.clients.Len()))
	c.log.Info().Msg("client connected")

	go c.listen(ingress)
}

// ingest feeds received bytes to the client's parser and dispatches
// every complete message. Parser overflow and any fatal dispatch
// error latch the client for teardown at the end of the pass.
func (d *Display) ingest(c *Client, data []byte) {
	if !c.alive() {
		return
	}

	if err := c.parser.Feed(data); err != nil {
		d.fatalError(c, protocol.ErrOverflow, err)
		return
	}

	for msg := range c.parser.Messages() {
		if !c.alive() {
			return
		}
		d.dispatch(c, msg)
	}
	if err := c.parser.Err(); err != nil && c.alive() {
		d.fatalError(c, protocol.ErrOverflow, err)
	}
}

// dispatch resolves one message against the client's namespace and
// runs the handler. Unknown object, unknown opcode, and malformed
// payloads are connection-fatal; handlers report semantic rejections
// themselves and return nil.
func (d *Display) dispatch(c *Client, msg *wire.Message) {
	obj := c.store.Get(msg.Object())
	if obj == nil {
		d.fatalError(c, protocol.ErrInvalidObject, wire.UnknownObjectError{ID: msg.Object()})
		return
	}
	debug.Printf("%v@%v <- op %v (%v bytes)", obj.Interface(), msg.Object(), msg.Op(), msg.Size())
	dispatchTotal.WithLabelValues(obj.Interface()).Inc()

	err := obj.Dispatch(msg)
	if err == nil {
		return
	}

	code := protocol.ErrInvalidObject
	var unknownOp wire.UnknownOpError
	if errors.As(err, &unknownOp) {
		code = protocol.ErrInvalidOpcode
	}
	d.fatalError(c, code, err)
}

// fatalError latches a connection-fatal error on c. The client gets a
// best-effort error event and is torn down after the current dispatch
// pass completes; tearing down immediately would invalidate state the
// pass is still iterating.
func (d *Display) fatalError(c *Client, code uint32, err error) {
	if c.fatal != nil {
		return
	}
	c.fatal = err
	c.log.Warn().Err(err).Msg("fatal protocol error")
	protocolErrorsTotal.WithLabelValues("fatal").Inc()
	c.postError(0, code, err.Error())
}

// disconnect marks c as gone after its connection closed.
func (d *Display) disconnect(c *Client) {
	if c.gone {
		return
	}
	c.gone = true
	c.log.Info().Msg("client disconnected")
}

// reap tears down every client latched for removal, releasing all the
// surfaces and buffers it owns. Per-client errors never reach beyond
// this point.
func (d *Display) reap() {
	for c := range d.clients {
		if c.alive() {
			continue
		}

		c.flush()
		c.shutdown()
		d.release(c)
		d.clients.Delete(c)
		clientsConnected.Set(float64(d.clients.Len()))
		c.log.Info().Msg("client removed")
	}
}

// release destroys every object in c's namespace. Surface deletion
// detaches buffers; buffer deletion drops the client handle; pool
// accounting returns to its pre-client value.
func (d *Display) release(c *Client) {
	var ids []uint32
	for obj := range c.store.All() {
		if obj.ID() != protocol.DisplayID {
			ids = append(ids, obj.ID())
		}
	}
	for _, id := range ids {
		c.store.Delete(id)
	}
}

// flushClients drains every live client's outgoing event queue.
func (d *Display) flushClients() {
	for c := range d.clients {
		c.flush()
	}
}

// tick advances the frame counter, assembles the frame if anything
// was committed, and presents it. The counter advances even for empty
// frames; it is the compositor's heartbeat.
func (d *Display) tick(p Presenter) {
	d.frame++
	framesTotal.Inc()

	frame := d.reg.Collect(d.frame)
	if frame != nil {
		if err := p.Present(frame); err != nil {
			d.log.Error().Err(err).Uint64("frame", frame.Number).Msg("present failed")
		}
	}
	d.flushClients()
	d.reap()
}

// shutdown closes every client and verifies that the pool drained.
func (d *Display) shutdown() {
	for c := range d.clients {
		c.flush()
		c.shutdown()
		d.release(c)
		d.clients.Delete(c)
	}
	clientsConnected.Set(0)

	if n := d.pool.Outstanding(); n != 0 {
		d.log.Warn().Int("outstanding", n).Msg("buffer pool not drained at shutdown")
	}
}
