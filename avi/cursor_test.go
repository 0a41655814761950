package avi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlescerisier/avixer/extractor"
)

func newInput(t *testing.T, data []byte) extractor.Input {
	t.Helper()
	sb := NewSeekableBuffer()
	_, err := sb.Write(data)
	require.NoError(t, err)
	_, err = sb.Seek(0, 0)
	require.NoError(t, err)
	return extractor.NewFileInput(sb, int64(len(data)))
}

func TestByteCursorIntegers(t *testing.T) {
	data := []byte{
		0x34, 0x12, // u16 = 0x1234
		0x78, 0x56, 0x34, // u24 = 0x345678
		0x04, 0x03, 0x02, 0x01, // u32 = 0x01020304
	}
	cur := NewByteCursor(newInput(t, data))

	v16, err := cur.U16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), v16)

	v24, err := cur.U24()
	require.NoError(t, err)
	require.Equal(t, uint32(0x345678), v24)

	v32, err := cur.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(0x01020304), v32)
}

func TestByteCursorChunkHeader(t *testing.T) {
	data := []byte{'0', '0', 'd', 'c', 0x10, 0x00, 0x00, 0x00}
	cur := NewByteCursor(newInput(t, data))

	id, size, err := cur.ChunkHeader()
	require.NoError(t, err)
	require.Equal(t, "00dc", ChunkIDToString(id))
	require.Equal(t, uint32(0x10), size)
}

func TestAssertEqual(t *testing.T) {
	require.NoError(t, AssertEqual("op", "hdrl", "hdrl"))
	require.Error(t, AssertEqual("op", "hdrl", "strl"))
}

func TestByteCursorPeekDoesNotAdvanceRead(t *testing.T) {
	cur := NewByteCursor(newInput(t, []byte("abcdef")))

	peeked, err := cur.Peek(3)
	require.NoError(t, err)
	require.Equal(t, "abc", string(peeked))

	read, err := cur.Read(3)
	require.NoError(t, err)
	require.Equal(t, "abc", string(read))
}
