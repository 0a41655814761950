package avi

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildSuperIndexBody(entries [][3]uint64) []byte {
	body := make([]byte, 24+16*len(entries))
	binary.LittleEndian.PutUint16(body[0:2], 4) // longsPerEntry
	binary.LittleEndian.PutUint32(body[4:8], uint32(len(entries)))
	off := 24
	for _, e := range entries {
		binary.LittleEndian.PutUint64(body[off:off+8], e[0])
		binary.LittleEndian.PutUint32(body[off+8:off+12], uint32(e[1]))
		binary.LittleEndian.PutUint32(body[off+12:off+16], uint32(e[2]))
		off += 16
	}
	return body
}

func buildStandardIndexBody(baseOffset uint64, entries [][2]uint32) []byte {
	body := make([]byte, 24+8*len(entries))
	binary.LittleEndian.PutUint16(body[0:2], 2) // longsPerEntry
	binary.LittleEndian.PutUint32(body[4:8], uint32(len(entries)))
	binary.LittleEndian.PutUint64(body[12:20], baseOffset)
	off := 24 // body[20:24] is the reserved field
	for _, e := range entries {
		binary.LittleEndian.PutUint32(body[off:off+4], e[0])
		binary.LittleEndian.PutUint32(body[off+4:off+8], e[1])
		off += 8
	}
	return body
}

func TestParseSuperIndexEntries(t *testing.T) {
	body := buildSuperIndexBody([][3]uint64{
		{1000, 200, 5000},
		{2000, 300, 5000},
	})
	super, std, err := parseIndexChunkBody(body, 0)
	require.NoError(t, err)
	require.Nil(t, std)
	require.Len(t, super, 2)
	require.Equal(t, int64(1000), super[0].IxChunkOffset)
	require.Equal(t, uint32(200), super[0].IxChunkByteSize)
	require.Equal(t, uint32(5000), super[0].DurationTicks)
}

func TestParseStandardIndexEntriesKeyframeBit(t *testing.T) {
	body := buildStandardIndexBody(10000, [][2]uint32{
		{100, 500},                  // keyframe, size 500
		{700, 300 | ixEntryNonKeyFrameBit}, // not a keyframe
	})
	super, std, err := parseIndexChunkBody(body, 9900)
	require.NoError(t, err)
	require.Nil(t, super)
	require.NotNil(t, std)
	require.Equal(t, int64(2), std.TotalEntryCount)
	require.Len(t, std.KeyFrameOffsets, 1)
	require.Equal(t, int64(10000+100-8), std.KeyFrameOffsets[0])
	require.Equal(t, uint32(500), std.KeyFrameSizes[0])
	require.Equal(t, []int64{0}, std.KeyFrameGlobalOrdinals)
}

func TestParseIndexChunkBodyTooShort(t *testing.T) {
	_, _, err := parseIndexChunkBody([]byte{1, 2, 3}, 0)
	require.Error(t, err)
}

func TestParseIndexChunkBodyUnsupportedLongsPerEntry(t *testing.T) {
	body := make([]byte, 24)
	binary.LittleEndian.PutUint16(body[0:2], 7)
	_, _, err := parseIndexChunkBody(body, 0)
	require.Error(t, err)
}
