package ape

import (
	"encoding/binary"
	"fmt"

	"github.com/charlescerisier/avixer/extractor"
)

// Frame is one decodable APE frame: its file position, 4-byte-aligned size,
// per-frame skip bits (lower two bits of the seek-table delta, shifted and
// OR'd with the post-table 2-byte element for pre-3810 files), block count,
// and cumulative presentation sample count.
type Frame struct {
	Pos    int64
	Size   int
	Blocks int64
	Skip   int
	PTS    int64
}

// FrameTable is the materialized seek table: per-frame records plus the two
// parallel slices a binary-search seek answers against.
type FrameTable struct {
	Frames           []Frame
	FrameSamplesAddUp []int64
	FramePositions   []int64
}

// BuildFrameTable reconstructs the frame table from the APE seek table that
// follows the header, following ape_read_header()'s algorithm in FFmpeg's
// libavformat/ape.c as ported by the original extractor's processSeekTable.
// in must be positioned wherever ReadInfo left it (the seek table always
// immediately follows descriptor+header+any trailing WAV header).
func BuildFrameTable(info Info, in extractor.Input) (FrameTable, error) {
	if info.SeekTableLength/4 < info.TotalFrames {
		return FrameTable{}, nil
	}

	var junkLength int64
	firstFramePosition := junkLength + info.DescriptorLength + info.HeaderLength + info.SeekTableLength + info.WavHeaderLength
	if info.FileVersion < 3810 {
		firstFramePosition += info.TotalFrames
	}

	n := int(info.TotalFrames)
	if n == 0 {
		return FrameTable{}, nil
	}
	frames := make([]Frame, n)
	frames[0] = Frame{Pos: firstFramePosition, Blocks: info.BlocksPerFrame, Skip: 0}

	entry := make([]byte, 4)
	if err := in.PeekFully(entry); err != nil {
		return FrameTable{}, err
	}
	position := int64(binary.LittleEndian.Uint32(entry))
	if position != firstFramePosition {
		return FrameTable{}, malformedErr("build frame table", fmt.Errorf("seek table entry 0 = %d, expected %d", position, firstFramePosition))
	}

	for i := 1; i < n; i++ {
		if err := in.PeekFully(entry); err != nil {
			return FrameTable{}, err
		}
		seekTableEntry := int64(binary.LittleEndian.Uint32(entry))
		frames[i] = Frame{Pos: seekTableEntry + junkLength, Blocks: info.BlocksPerFrame}
		frames[i-1].Size = int(frames[i].Pos - frames[i-1].Pos)
		frames[i].Skip = int(frames[i].Pos-frames[0].Pos) & 3
	}

	if err := in.AdvancePeekPosition(info.SeekTableLength/4 - info.TotalFrames); err != nil {
		return FrameTable{}, err
	}

	frames[n-1].Blocks = info.FinalFrameBlocks
	{
		fileSize := in.Length()
		var finalSize int64
		if fileSize > 0 {
			finalSize = fileSize - frames[n-1].Pos - info.WavTailLength
			finalSize -= finalSize & 3
		}
		if fileSize <= 0 || finalSize <= 0 {
			finalSize = info.FinalFrameBlocks * 8
		}
		frames[n-1].Size = int(finalSize)
	}

	for i := range frames {
		if frames[i].Skip > 0 {
			frames[i].Pos -= int64(frames[i].Skip)
			frames[i].Size += frames[i].Skip
		}
		frames[i].Size = (frames[i].Size + 3) &^ 3
	}

	if info.FileVersion < 3810 {
		twoBytes := make([]byte, 2)
		for i := 0; i < n; i++ {
			if err := in.PeekFully(twoBytes); err != nil {
				return FrameTable{}, err
			}
			bits := int(binary.LittleEndian.Uint16(twoBytes))
			if i > 0 && bits != 0 {
				frames[i-1].Size += 4
			}
			frames[i].Skip <<= 3
			frames[i].Skip += bits
		}
	}

	var pts int64
	for i := range frames {
		frames[i].PTS = pts
		pts += info.BlocksPerFrame
	}

	table := FrameTable{
		Frames:            frames,
		FrameSamplesAddUp: make([]int64, n),
		FramePositions:    make([]int64, n),
	}
	for i, f := range frames {
		table.FrameSamplesAddUp[i] = f.PTS
		table.FramePositions[i] = f.Pos
	}
	return table, nil
}

// LargestFrameSize reports the largest Size across the table.
func (t FrameTable) LargestFrameSize() int {
	largest := 0
	for _, f := range t.Frames {
		if f.Size > largest {
			largest = f.Size
		}
	}
	return largest
}
