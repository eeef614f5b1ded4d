package loom

import (
	"image"
	"slices"

	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"
)

// Registry creates and destroys surfaces and tracks their pending and
// committed state. Like the pool, it is only touched from the
// compositor loop's goroutine.
type Registry struct {
	log        zerolog.Logger
	surfaces   map[uint64]*Surface
	nextSerial uint64
	commits    int
}

func newRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		log:        logger,
		surfaces:   make(map[uint64]*Surface),
		nextSerial: 1,
	}
}

// Create allocates a new surface for client. The caller registers it
// in the client's namespace, which assigns the protocol id.
func (r *Registry) Create(client *Client, width, height uint32) *Surface {
	s := &Surface{
		serial: r.nextSerial,
		client: client,
		reg:    r,
		width:  width,
		height: height,
	}
	r.nextSerial++
	r.surfaces[s.serial] = s
	surfacesActive.Set(float64(len(r.surfaces)))

	return s
}

// Len reports the number of live surfaces.
func (r *Registry) Len() int {
	return len(r.surfaces)
}

// Attach replaces s's attached buffer, adjusting refcounts. The old
// buffer's memory is released if this drops its last reference.
func (r *Registry) Attach(s *Surface, b *Buffer) {
	b.retain()
	if s.buf != nil {
		s.buf.unref()
	}
	s.buf = b
}

// Damage adds a rect to s's pending damage, clipped to the surface.
func (r *Registry) Damage(s *Surface, rect image.Rectangle) {
	rect = rect.Canon().Intersect(s.Bounds())
	if rect.Empty() {
		return
	}
	s.pending = append(s.pending, rect)
}

// Commit makes s eligible for the next frame. Pending damage moves
// into the outgoing frame entry; a commit with no pending damage
// counts as full-surface damage. Committing twice before a tick
// coalesces into one entry.
func (r *Registry) Commit(s *Surface) {
	if len(s.pending) == 0 {
		s.pending = append(s.pending, s.Bounds())
	}
	s.committed = append(s.committed, s.pending...)
	s.pending = nil

	if !s.ready {
		s.ready = true
		r.commits++
	}
}

// remove detaches s's buffer and forgets the surface. Its serial and
// protocol id are never reused.
func (r *Registry) remove(s *Surface) {
	if s.buf != nil {
		s.buf.unref()
		s.buf = nil
	}
	if s.ready {
		s.ready = false
		r.commits--
	}
	delete(r.surfaces, s.serial)
	surfacesActive.Set(float64(len(r.surfaces)))
}

// Collect assembles the frame for tick number from everything
// committed since the last collect, ordered by surface serial. It
// returns nil when nothing was committed. Surfaces with no attached
// buffer are never composited; their commit state is consumed all the
// same.
func (r *Registry) Collect(number uint64) *Frame {
	if r.commits == 0 {
		return nil
	}

	all := maps.Values(r.surfaces)
	slices.SortFunc(all, func(a, b *Surface) int {
		if a.serial < b.serial {
			return -1
		}
		return 1
	})

	frame := Frame{Number: number}
	for _, s := range all {
		if !s.ready {
			continue
		}
		s.ready = false
		damage := s.committed
		s.committed = nil

		if s.buf == nil {
			continue
		}
		frame.Entries = append(frame.Entries, FrameEntry{
			Surface: s.id,
			Serial:  s.serial,
			Damage:  damage,
			Buffer:  s.buf,
		})
	}
	r.commits = 0

	if len(frame.Entries) == 0 {
		return nil
	}
	return &frame
}
