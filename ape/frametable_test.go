package ape

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlescerisier/avixer/extractor"
)

func seekTableInput(entries []uint32, tailLE16 []uint16, totalLength int64) extractor.Input {
	var data []byte
	for _, e := range entries {
		data = append(data, le32(e)...)
	}
	for _, b := range tailLE16 {
		data = append(data, le16(b)...)
	}
	if int64(len(data)) < totalLength {
		data = append(data, make([]byte, totalLength-int64(len(data)))...)
	}
	return extractor.NewFileInput(bytes.NewReader(data), totalLength)
}

func TestBuildFrameTableComputedFinalSize(t *testing.T) {
	info := Info{
		FileVersion:      3990,
		TotalFrames:      3,
		BlocksPerFrame:   1000,
		FinalFrameBlocks: 700,
		DescriptorLength: 52,
		HeaderLength:     24,
		SeekTableLength:  12,
	}
	in := seekTableInput([]uint32{88, 388, 688}, nil, 1000)

	table, err := BuildFrameTable(info, in)
	require.NoError(t, err)
	require.Len(t, table.Frames, 3)

	require.Equal(t, int64(88), table.Frames[0].Pos)
	require.Equal(t, 300, table.Frames[0].Size)
	require.Equal(t, int64(388), table.Frames[1].Pos)
	require.Equal(t, 300, table.Frames[1].Size)
	require.Equal(t, int64(688), table.Frames[2].Pos)
	require.Equal(t, int64(700), table.Frames[2].Blocks)
	require.Equal(t, 312, table.Frames[2].Size)

	require.Equal(t, []int64{0, 1000, 2000}, table.FrameSamplesAddUp)
	require.Equal(t, []int64{88, 388, 688}, table.FramePositions)
}

func TestBuildFrameTableUnknownLengthFallsBackToFinalBlocks(t *testing.T) {
	info := Info{
		FileVersion:      3990,
		TotalFrames:      2,
		BlocksPerFrame:   1000,
		FinalFrameBlocks: 500,
		DescriptorLength: 52,
		HeaderLength:     24,
		SeekTableLength:  8,
	}
	in := seekTableInput([]uint32{84, 384}, nil, -1)

	table, err := BuildFrameTable(info, in)
	require.NoError(t, err)
	require.Equal(t, 300, table.Frames[0].Size)
	require.Equal(t, 4000, table.Frames[1].Size) // FinalFrameBlocks * 8
}

func TestBuildFrameTablePre3810SkipBits(t *testing.T) {
	info := Info{
		FileVersion:      3800,
		TotalFrames:      2,
		BlocksPerFrame:   1000,
		FinalFrameBlocks: 500,
		DescriptorLength: 52,
		HeaderLength:     24,
		SeekTableLength:  8,
	}
	// firstFramePosition includes +TotalFrames for pre-3810 files.
	in := seekTableInput([]uint32{86, 386}, []uint16{0, 5}, 1000)

	table, err := BuildFrameTable(info, in)
	require.NoError(t, err)
	require.Equal(t, int64(86), table.Frames[0].Pos)
	// The non-zero post-table bit for frame 1 adds 4 bytes to frame 0's size.
	require.Equal(t, 304, table.Frames[0].Size)
	require.Equal(t, 5, table.Frames[1].Skip)
}

func TestBuildFrameTableRejectsMismatchedFirstEntry(t *testing.T) {
	info := Info{
		FileVersion:      3990,
		TotalFrames:      1,
		BlocksPerFrame:   1000,
		FinalFrameBlocks: 1000,
		DescriptorLength: 52,
		HeaderLength:     24,
		SeekTableLength:  4,
	}
	in := seekTableInput([]uint32{999}, nil, 1000)

	_, err := BuildFrameTable(info, in)
	require.Error(t, err)
}

func TestBuildFrameTableShortSeekTableReturnsEmpty(t *testing.T) {
	info := Info{TotalFrames: 10, SeekTableLength: 4} // 4/4=1 < 10
	table, err := BuildFrameTable(info, seekTableInput(nil, nil, 0))
	require.NoError(t, err)
	require.Empty(t, table.Frames)
}

func TestLargestFrameSize(t *testing.T) {
	table := FrameTable{Frames: []Frame{{Size: 100}, {Size: 400}, {Size: 250}}}
	require.Equal(t, 400, table.LargestFrameSize())
}
