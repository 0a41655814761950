package avi

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeekableBuffer(t *testing.T) {
	sb := NewSeekableBuffer()

	n, err := sb.Write([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, 11, n)
	require.Equal(t, 11, sb.Len())

	pos, err := sb.Seek(0, io.SeekStart)
	require.NoError(t, err)
	require.Equal(t, int64(0), pos)

	buf := make([]byte, 5)
	n, err = sb.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))

	pos, err = sb.Seek(6, io.SeekStart)
	require.NoError(t, err)
	require.Equal(t, int64(6), pos)

	n, err = sb.Write([]byte("WORLD"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello WORLD", string(sb.Bytes()))

	pos, err = sb.Seek(20, io.SeekStart)
	require.NoError(t, err)
	require.Equal(t, int64(20), pos)
	require.Equal(t, 20, sb.Len())

	sb.Reset()
	require.Equal(t, 0, sb.Len())
}

func TestSeekableBufferReadPastEnd(t *testing.T) {
	sb := NewSeekableBuffer()
	_, err := sb.Write([]byte("abc"))
	require.NoError(t, err)

	_, err = sb.Seek(0, io.SeekStart)
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := sb.Read(buf)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 3, n)
}

func TestSeekableBufferNegativeSeek(t *testing.T) {
	sb := NewSeekableBuffer()
	_, err := sb.Seek(-1, io.SeekStart)
	require.Error(t, err)
}
