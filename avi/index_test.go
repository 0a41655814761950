package avi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamIndexKeyframeArrayTimestamps(t *testing.T) {
	si := NewStreamIndex(10, 10_000_000) // 10 chunks spanning 10s

	// Every chunk is a keyframe (all-frames-indexed branch).
	for i := int64(0); i < 10; i++ {
		si.AppendIdx1Offset(1000 + i*100)
		si.AppendIdx1KeyFrame(1000+i*100, 100)
		si.IncrementIdx1ChunkCount()
	}

	tUs, ok := si.TimestampForOffset(1000)
	require.True(t, ok)
	require.Equal(t, int64(0), tUs)

	tUs, ok = si.TimestampForOffset(1000 + 5*100)
	require.True(t, ok)
	require.Equal(t, int64(5_000_000), tUs)

	_, ok = si.TimestampForOffset(999999)
	require.False(t, ok)
}

func TestStreamIndexAllFramesTimestampsResolveNonKeyframes(t *testing.T) {
	si := NewStreamIndex(4, 4_000_000) // 4 chunks spanning 4s, only chunk 0 and 2 are keyframes.
	si.AppendIdx1Offset(1000)
	si.AppendIdx1KeyFrame(1000, 100)
	si.IncrementIdx1ChunkCount()
	si.AppendIdx1Offset(1100) // P-frame, no AppendIdx1KeyFrame
	si.IncrementIdx1ChunkCount()
	si.AppendIdx1Offset(1200)
	si.AppendIdx1KeyFrame(1200, 100)
	si.IncrementIdx1ChunkCount()
	si.AppendIdx1Offset(1300) // P-frame
	si.IncrementIdx1ChunkCount()

	// idx1 covers every chunk in the stream header's count, so this is
	// still the all-frames-indexed branch even though half the entries
	// are not keyframes.
	tUs, ok := si.TimestampForOffset(1100)
	require.True(t, ok)
	require.Equal(t, int64(1_000_000), tUs)

	tUs, ok = si.TimestampForOffset(1300)
	require.True(t, ok)
	require.Equal(t, int64(3_000_000), tUs)
}

func TestStreamIndexSeekPointsKeyframeArray(t *testing.T) {
	si := NewStreamIndex(4, 4_000_000)
	for i := int64(0); i < 4; i++ {
		si.AppendIdx1Offset(1000 + i*100)
		si.AppendIdx1KeyFrame(1000+i*100, 100)
		si.IncrementIdx1ChunkCount()
	}

	ans := si.SeekPoints(1_500_000)
	require.True(t, ans.Ready)
	require.Equal(t, int64(1_000_000), ans.Points.First.TimeUs)
	require.Equal(t, int64(2_000_000), ans.Points.Second.TimeUs)

	ans = si.SeekPoints(0)
	require.True(t, ans.Ready)
	require.Equal(t, int64(0), ans.Points.First.TimeUs)

	ans = si.SeekPoints(10_000_000)
	require.True(t, ans.Ready)
	require.Equal(t, ans.Points.First, ans.Points.Second)
}

func TestStreamIndexOpenDMLPendingSegment(t *testing.T) {
	si := NewStreamIndex(0, 10_000_000)
	si.InstallSuperIndex([]SuperIndexEntry{
		{IxChunkOffset: 5000, IxChunkByteSize: 64, DurationTicks: 5000},
		{IxChunkOffset: 9000, IxChunkByteSize: 64, DurationTicks: 5000},
	})

	ans := si.SeekPoints(8_000_000) // falls in the second, unloaded segment
	require.False(t, ans.Ready)
	require.Equal(t, int64(9000), ans.Pending)

	pending, ok := si.PendingSeekOffset()
	require.True(t, ok)
	require.Equal(t, int64(9000), pending)

	si.InstallStandardIndex(1, StandardIndexSegment{
		BaseOffset:      9100,
		KeyFrameOffsets: []int64{9200, 9400},
		KeyFrameSizes:   []uint32{50, 50},
		TotalEntryCount: 2,
	}, 9000)

	_, ok = si.PendingSeekOffset()
	require.False(t, ok)

	ans = si.SeekPoints(8_000_000)
	require.True(t, ans.Ready)
}

func TestStreamIndexReport(t *testing.T) {
	si := NewStreamIndex(2, 2_000_000)
	si.AppendIdx1KeyFrame(100, 10)
	si.IncrementIdx1ChunkCount()
	si.IncrementIdx1ChunkCount()

	report := si.Report()
	require.Contains(t, report, "chunks=2")
	require.Contains(t, report, "keyframes=1")
	require.Contains(t, report, "opendml=no")
}

func TestBinarySearchFloorInt64(t *testing.T) {
	arr := []int64{0, 10, 20, 30}
	require.Equal(t, 0, binarySearchFloorInt64(arr, -5))
	require.Equal(t, 0, binarySearchFloorInt64(arr, 0))
	require.Equal(t, 1, binarySearchFloorInt64(arr, 15))
	require.Equal(t, 3, binarySearchFloorInt64(arr, 1000))
}
