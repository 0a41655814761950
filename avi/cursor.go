package avi

import (
	"encoding/binary"
	"fmt"

	"github.com/charlescerisier/avixer/extractor"
)

// ByteCursor is a thin view over an extractor.Input that adds little-endian
// integer helpers. Peek leaves Input's read cursor untouched — a later Read
// of the same bytes is guaranteed to see what Peek saw, because both ride
// Input's own independent peek cursor.
type ByteCursor struct {
	in  extractor.Input
	buf [8]byte
}

func NewByteCursor(in extractor.Input) *ByteCursor {
	return &ByteCursor{in: in}
}

func (c *ByteCursor) Position() int64 { return c.in.Position() }

func (c *ByteCursor) Read(n int) ([]byte, error) {
	dst := make([]byte, n)
	if err := c.in.ReadFully(dst); err != nil {
		return nil, err
	}
	return dst, nil
}

func (c *ByteCursor) ReadInto(dst []byte) error {
	return c.in.ReadFully(dst)
}

func (c *ByteCursor) Skip(n int64) error {
	return c.in.SkipFully(n)
}

func (c *ByteCursor) Peek(n int) ([]byte, error) {
	dst := make([]byte, n)
	if err := c.in.PeekFully(dst); err != nil {
		return nil, err
	}
	return dst, nil
}

func (c *ByteCursor) ResetPeek() { c.in.ResetPeekPosition() }

func (c *ByteCursor) U16() (uint16, error) {
	if err := c.in.ReadFully(c.buf[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(c.buf[:2]), nil
}

func (c *ByteCursor) U24() (uint32, error) {
	if err := c.in.ReadFully(c.buf[:3]); err != nil {
		return 0, err
	}
	return uint32(c.buf[0]) | uint32(c.buf[1])<<8 | uint32(c.buf[2])<<16, nil
}

func (c *ByteCursor) U32() (uint32, error) {
	if err := c.in.ReadFully(c.buf[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(c.buf[:4]), nil
}

func (c *ByteCursor) I32() (int32, error) {
	v, err := c.U32()
	return int32(v), err
}

func (c *ByteCursor) U64() (uint64, error) {
	if err := c.in.ReadFully(c.buf[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(c.buf[:8]), nil
}

func (c *ByteCursor) FourCC() ([4]byte, error) {
	var id [4]byte
	if err := c.in.ReadFully(id[:]); err != nil {
		return id, err
	}
	return id, nil
}

// ChunkHeader reads an 8-byte chunk header (fourCC + little-endian size). A
// truncated header surfaces as the Eof error ReadFully reports; this wrapper
// exists for call-site clarity.
func (c *ByteCursor) ChunkHeader() (id [4]byte, size uint32, err error) {
	id, err = c.FourCC()
	if err != nil {
		return id, 0, err
	}
	size, err = c.U32()
	if err != nil {
		return id, 0, err
	}
	return id, size, nil
}

// AssertEqual fails with Malformed when got != want, the ByteCursor-local
// equivalent of the structural assertions scattered through hdrl/movi
// parsing (e.g. LIST type must be "hdrl").
func AssertEqual(op string, want, got string) error {
	if want != got {
		return malformedErr(op, fmt.Errorf("expected %q, got %q", want, got))
	}
	return nil
}
