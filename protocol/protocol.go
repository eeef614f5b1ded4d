// Package protocol defines the compositor's protocol vocabulary: the
// object interfaces, request and event opcodes, error codes, and pixel
// formats shared by the server and client halves.
package protocol

// DisplayID is the id of the display object, present in every
// client's namespace from the moment it connects.
const DisplayID uint32 = 1

// Interface names.
const (
	IfaceDisplay = "display"
	IfaceSurface = "surface"
	IfaceBuffer  = "buffer"
)

// Display requests.
const (
	OpDisplayCreateSurface uint16 = 0 // width u32, height u32
	OpDisplayCreateBuffer  uint16 = 1 // width u32, height u32, format u32, size u32
	OpDisplaySync          uint16 = 2
)

// Display events.
const (
	EvDisplayError          uint16 = 0 // object u32, code u32, message string
	EvDisplaySurfaceCreated uint16 = 1 // id u32
	EvDisplayBufferCreated  uint16 = 2 // id u32
	EvDisplayDone           uint16 = 3 // serial u32
)

// Surface requests.
const (
	OpSurfaceAttach  uint16 = 0 // buffer u32
	OpSurfaceDamage  uint16 = 1 // x i32, y i32, width i32, height i32
	OpSurfaceCommit  uint16 = 2
	OpSurfaceDestroy uint16 = 3
)

// Buffer requests.
const (
	OpBufferDestroy uint16 = 0
)

// Error codes carried by the display error event.
const (
	ErrInvalidObject uint32 = 1
	ErrInvalidOpcode uint32 = 2
	ErrNoMemory      uint32 = 3
	ErrBadSize       uint32 = 4
	ErrBadFormat     uint32 = 5
	ErrBadBuffer     uint32 = 6
	ErrOverflow      uint32 = 7
)

// Pixel formats. Both are 32 bits per pixel.
const (
	FormatARGB8888 uint32 = 0
	FormatXRGB8888 uint32 = 1
)

// BytesPerPixel is fixed for all supported formats.
const BytesPerPixel = 4

// ValidFormat reports whether format names a supported pixel format.
func ValidFormat(format uint32) bool {
	return format == FormatARGB8888 || format == FormatXRGB8888
}

// BufferSize returns the required byte length of a width×height buffer.
func BufferSize(width, height uint32) uint32 {
	return width * height * BytesPerPixel
}
