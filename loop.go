package loom

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/loomwm/loom/internal/cq"
	"github.com/loomwm/loom/wire"
)

// State is the compositor loop's lifecycle state.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Loop is the top-level driver. The accept goroutine and one reader
// goroutine per connection funnel closures into a single ingress
// queue; the loop goroutine alone executes them, so handlers never
// run concurrently with each other or with the render step. Its only
// timer is the frame ticker, which bounds every wait.
type Loop struct {
	display   *Display
	presenter Presenter
	ingress   *cq.Queue[func()]
	lis       *net.UnixListener
	state     atomic.Int32
	done      chan struct{}
}

func NewLoop(display *Display, presenter Presenter) *Loop {
	if presenter == nil {
		presenter = NopPresenter{}
	}
	return &Loop{
		display:   display,
		presenter: presenter,
		ingress:   cq.New[func()](),
		done:      make(chan struct{}),
	}
}

func (l *Loop) State() State {
	return State(l.state.Load())
}

// Run binds the rendezvous socket and drives the loop until ctx is
// canceled, then drains: the listener closes, in-flight dispatch
// finishes, pending events flush, and every resource is released. A
// bind failure is fatal to startup and is the only error returned.
func (l *Loop) Run(ctx context.Context) error {
	path := l.display.cfg.Socket
	if path == "" {
		path = wire.SocketPath()
	}

	lis, err := wire.Listen(path)
	if err != nil {
		l.state.Store(int32(StateStopped))
		return fmt.Errorf("bind %v: %w", path, err)
	}
	l.lis = lis
	l.display.log.Info().Str("socket", path).Msg("listening")

	go l.accept()

	l.state.Store(int32(StateRunning))
	ticker := time.NewTicker(l.display.cfg.FrameInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.drain()
			return nil

		case batch := <-l.ingress.Get():
			for _, fn := range batch {
				fn()
			}
			l.display.reap()
			l.display.flushClients()

		case <-ticker.C:
			l.display.tick(l.presenter)
		}
	}
}

// accept adopts pending connections, zero or more per wakeup of the
// loop. Construction of the Client happens on the loop goroutine.
func (l *Loop) accept() {
	for {
		c, err := l.lis.AcceptUnix()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.display.log.Warn().Err(err).Msg("accept failed")
			continue
		}

		select {
		case <-l.done:
			c.Close()
			return
		case l.ingress.Add() <- func() { l.display.addClient(c, l.ingress) }:
		}
	}
}

func (l *Loop) drain() {
	l.state.Store(int32(StateDraining))
	l.display.log.Info().Msg("draining")
	close(l.done)
	l.lis.Close()

	// Finish whatever dispatch work was already queued, but accept
	// nothing new.
	select {
	case batch := <-l.ingress.Get():
		for _, fn := range batch {
			fn()
		}
	default:
	}
	l.display.reap()
	l.display.shutdown()
	l.ingress.Stop()

	l.state.Store(int32(StateStopped))
	l.display.log.Info().Msg("stopped")
}
