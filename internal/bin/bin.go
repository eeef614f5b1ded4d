// Package bin contains utilities for the 32-bit-word binary encoding
// used by the wire protocol. All values are little-endian on the wire.
package bin

import (
	"encoding/binary"
	"io"
)

func Bytes[T ~int32 | ~uint32](v T) [4]byte {
	var data [4]byte
	binary.LittleEndian.PutUint32(data[:], uint32(v))
	return data
}

func Value[T ~int32 | ~uint32](data [4]byte) T {
	return T(binary.LittleEndian.Uint32(data[:]))
}

func Read[T ~int32 | ~uint32](r io.Reader) (T, error) {
	var data [4]byte
	_, err := io.ReadFull(r, data[:])
	if err != nil {
		return 0, err
	}

	return Value[T](data), nil
}

func Write[T ~int32 | ~uint32](w io.Writer, v T) error {
	data := Bytes(v)
	n, err := w.Write(data[:])
	if (err == nil) && (n < len(data)) {
		return io.ErrShortWrite
	}
	return err
}
