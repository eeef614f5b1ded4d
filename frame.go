package loom

import "image"

// FrameEntry is one composited surface in a frame: the surface's
// client-local id, its display-wide serial, the damage accumulated
// since the previous frame, and the attached buffer.
type FrameEntry struct {
	Surface uint32
	Serial  uint64
	Damage  []image.Rectangle
	Buffer  *Buffer
}

// Frame is the ephemeral snapshot handed to the presenter once per
// tick: every surface committed since the prior frame, in serial
// order. It is not retained after Present returns.
type Frame struct {
	Number  uint64
	Entries []FrameEntry
}
