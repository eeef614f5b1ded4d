package loom_test

import (
	"context"
	"errors"
	"image"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/loomwm/loom"
	"github.com/loomwm/loom/client"
	"github.com/loomwm/loom/protocol"
	"github.com/loomwm/loom/wire"
	"github.com/rs/zerolog"
)

// capturePresenter forwards every presented frame to a channel.
type capturePresenter struct {
	frames chan *loom.Frame
}

func (p *capturePresenter) Present(frame *loom.Frame) error {
	select {
	case p.frames <- frame:
	default:
	}
	return nil
}

// startLoop runs a compositor on a private socket and returns once it
// accepts connections.
func startLoop(t *testing.T, presenter loom.Presenter) (string, *loom.Loop, context.CancelFunc) {
	t.Helper()

	cfg := loom.DefaultConfig()
	cfg.Socket = filepath.Join(t.TempDir(), "loom-test")
	cfg.FrameRate = 200

	d, err := loom.NewDisplay(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new display: %v", err)
	}
	l := loom.NewLoop(d, presenter)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	waitState(t, l, loom.StateRunning)
	t.Cleanup(func() {
		cancel()
		if err := <-errc; err != nil {
			t.Errorf("loop: %v", err)
		}
	})
	return cfg.Socket, l, cancel
}

func waitState(t *testing.T, l *loom.Loop, want loom.State) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for l.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("loop stuck in state %v, want %v", l.State(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitFrame(t *testing.T, frames chan *loom.Frame) *loom.Frame {
	t.Helper()

	select {
	case frame := <-frames:
		return frame
	case <-time.After(5 * time.Second):
		t.Fatal("no frame presented")
		return nil
	}
}

func TestLoopPresentsCommittedSurface(t *testing.T) {
	presenter := &capturePresenter{frames: make(chan *loom.Frame, 16)}
	path, _, _ := startLoop(t, presenter)

	d, err := client.DialPath(path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer d.Close()

	s := d.CreateSurface(100, 100)
	b := d.CreateBuffer(100, 100, protocol.FormatARGB8888)
	if err := d.RoundTrip(); err != nil {
		t.Fatalf("roundtrip: %v", err)
	}
	if s.ID() == 0 || b.ID() == 0 {
		t.Fatalf("ids not assigned: surface=%v buffer=%v", s.ID(), b.ID())
	}

	s.Attach(b)
	s.Commit()
	if err := d.RoundTrip(); err != nil {
		t.Fatalf("roundtrip: %v", err)
	}

	frame := waitFrame(t, presenter.frames)
	if len(frame.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %v", len(frame.Entries))
	}
	e := frame.Entries[0]
	if e.Surface != s.ID() {
		t.Fatalf("expected surface %v, got %v", s.ID(), e.Surface)
	}
	if len(e.Damage) != 1 || e.Damage[0] != image.Rect(0, 0, 100, 100) {
		t.Fatalf("expected full damage, got %v", e.Damage)
	}
	if e.Buffer.Len() != int(protocol.BufferSize(100, 100)) {
		t.Fatalf("unexpected buffer size %v", e.Buffer.Len())
	}
}

func TestLoopExplicitDamageReachesPresenter(t *testing.T) {
	presenter := &capturePresenter{frames: make(chan *loom.Frame, 16)}
	path, _, _ := startLoop(t, presenter)

	d, err := client.DialPath(path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer d.Close()

	s := d.CreateSurface(64, 64)
	b := d.CreateBuffer(64, 64, protocol.FormatXRGB8888)
	if err := d.RoundTrip(); err != nil {
		t.Fatalf("roundtrip: %v", err)
	}

	s.Attach(b)
	s.Damage(8, 8, 16, 16)
	s.Commit()
	if err := d.RoundTrip(); err != nil {
		t.Fatalf("roundtrip: %v", err)
	}

	frame := waitFrame(t, presenter.frames)
	e := frame.Entries[0]
	if len(e.Damage) != 1 || e.Damage[0] != image.Rect(8, 8, 24, 24) {
		t.Fatalf("expected damage (8,8)-(24,24), got %v", e.Damage)
	}
}

func TestLoopDisconnectsOffenderOnly(t *testing.T) {
	path, _, _ := startLoop(t, loom.NopPresenter{})

	good, err := client.DialPath(path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer good.Close()
	gs := good.CreateSurface(32, 32)
	if err := good.RoundTrip(); err != nil {
		t.Fatalf("roundtrip: %v", err)
	}

	// A raw connection referencing an id it never created gets an
	// error event and the connection is closed.
	bad, err := wire.DialPath(path)
	if err != nil {
		t.Fatalf("dial raw: %v", err)
	}
	defer bad.Close()
	if err := wire.NewMessage(99, protocol.OpSurfaceCommit).Build(bad); err != nil {
		t.Fatalf("send: %v", err)
	}

	bad.SetReadDeadline(time.Now().Add(5 * time.Second))
	p := wire.NewParser(0)
	buf := make([]byte, 4096)
	var sawError bool
	for {
		n, err := bad.Read(buf)
		if n > 0 {
			if err := p.Feed(buf[:n]); err != nil {
				t.Fatalf("feed: %v", err)
			}
			for msg := range p.Messages() {
				if msg.Op() != protocol.EvDisplayError {
					t.Fatalf("expected error event, got op %v", msg.Op())
				}
				msg.ReadUint()
				if code := msg.ReadUint(); code != protocol.ErrInvalidObject {
					t.Fatalf("expected invalid_object, got code %v", code)
				}
				sawError = true
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("expected connection close, got %v", err)
			}
			break
		}
	}
	if !sawError {
		t.Fatal("no error event before close")
	}

	// The well-behaved client is still being served.
	gs.Commit()
	if err := good.RoundTrip(); err != nil {
		t.Fatalf("good client no longer served: %v", err)
	}
}

func TestLoopSyncSerialAdvances(t *testing.T) {
	path, _, _ := startLoop(t, loom.NopPresenter{})

	d, err := client.DialPath(path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer d.Close()

	read := func() uint32 {
		var serial uint32
		got := make(chan struct{})
		d.Sync(func(s uint32) {
			serial = s
			close(got)
		})
		if err := d.RoundTrip(); err != nil {
			t.Fatalf("roundtrip: %v", err)
		}
		<-got
		return serial
	}

	first := read()
	time.Sleep(50 * time.Millisecond) // several ticks at 200Hz
	second := read()
	if second <= first {
		t.Fatalf("frame counter did not advance: %v then %v", first, second)
	}
}

func TestLoopDrainStopsServing(t *testing.T) {
	path, l, cancel := startLoop(t, loom.NopPresenter{})

	d, err := client.DialPath(path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer d.Close()
	d.CreateSurface(16, 16)
	if err := d.RoundTrip(); err != nil {
		t.Fatalf("roundtrip: %v", err)
	}

	cancel()
	waitState(t, l, loom.StateStopped)

	if _, err := wire.DialPath(path); err == nil {
		t.Fatal("expected dial to fail after drain")
	}
}
