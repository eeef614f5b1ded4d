// Package render provides the default render/present collaborator: a
// software compositor that draws each frame into an in-memory RGBA
// output, clipped to the damage each surface reported. Anything
// smarter (format conversion, scaling, a real scanout path) belongs
// behind the same interface.
package render

import (
	"image"

	"github.com/loomwm/loom"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
)

// Renderer composites frames into an RGBA image. It implements
// loom.Presenter.
type Renderer struct {
	log zerolog.Logger
	out *image.RGBA
}

func New(logger zerolog.Logger, width, height int) *Renderer {
	return &Renderer{
		log: logger,
		out: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Image exposes the current output. Only valid between Present calls.
func (r *Renderer) Image() *image.RGBA {
	return r.out
}

// Present composites every frame entry, in order, into the output.
// Each entry's buffer is drawn only inside its damage rects, clipped
// to the output bounds.
func (r *Renderer) Present(frame *loom.Frame) error {
	for _, e := range frame.Entries {
		src := e.Buffer.Image()
		for _, rect := range e.Damage {
			rect = rect.Intersect(r.out.Bounds())
			if rect.Empty() {
				continue
			}
			draw.Draw(r.out, rect, src, rect.Min, draw.Src)
		}
	}

	r.log.Debug().Uint64("frame", frame.Number).Int("entries", len(frame.Entries)).Msg("frame presented")
	return nil
}
