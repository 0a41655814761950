package avi

import (
	"strconv"

	"github.com/charlescerisier/avixer/extractor"
)

// UnsetOffset is the sentinel used where the original distinguishes "not
// yet known" from byte offset zero.
const UnsetOffset int64 = -1

// SuperIndexEntry is one row of an indx super-index: where the ix## chunk
// covering a segment of this stream lives, and how much presentation time
// (in muxer ticks) that segment spans.
type SuperIndexEntry struct {
	IxChunkOffset   int64
	IxChunkByteSize uint32
	DurationTicks   uint32
}

// StandardIndexSegment holds one segment's keyframe table once its ix##
// chunk has been read. Loaded is false until then.
type StandardIndexSegment struct {
	BaseOffset             int64
	KeyFrameOffsets        []int64
	KeyFrameGlobalOrdinals []int64
	KeyFrameSizes          []uint32
	TotalEntryCount        int64
	Loaded                 bool
}

// PendingSeek records the single outstanding segment-load detour a
// StreamIndex may require before it can answer a seek precisely.
type PendingSeek struct {
	SegmentIndex int
	ByteOffset   int64
}

// SeekAnswer is the sum type StreamIndex.SeekPoints returns: either a ready
// pair of candidate points, or the byte offset of an ix## chunk that must be
// loaded first.
type SeekAnswer struct {
	Ready   bool
	Points  extractor.SeekPoints
	Pending int64 // valid when !Ready
}

// StreamIndex is the per-stream index state machine described by the
// container format's OpenDML extension: an idx1 keyframe table, optionally
// superseded by a two-tier super-index + lazily-loaded standard-index
// segments.
type StreamIndex struct {
	streamHeaderChunkCount int64
	durationUs             int64

	allOffsets              []int64
	keyOffsets              []int64
	keySizes                []uint32
	cumulativeKeyFrameBytes []int64
	idx1ChunkCount          int64

	superIndex      []SuperIndexEntry
	cumulativeTicks []int64
	segments        []StandardIndexSegment

	pending *PendingSeek

	silentGapCount int // diagnostic counter, never acted on; see Report.
}

// NewStreamIndex constructs an index for a stream whose strh advertised
// chunkCount frames spanning durationUs microseconds.
func NewStreamIndex(chunkCount int64, durationUs int64) *StreamIndex {
	return &StreamIndex{streamHeaderChunkCount: chunkCount, durationUs: durationUs}
}

// AppendIdx1Offset records one idx1 entry's byte offset regardless of its
// keyframe flag. Its position in allOffsets is that entry's global ordinal,
// which is what the all-frames-indexed branch of TimestampForOffset needs
// to resolve non-keyframe chunks once idx1 covers every frame.
func (si *StreamIndex) AppendIdx1Offset(offset int64) {
	si.allOffsets = append(si.allOffsets, offset)
}

// AppendIdx1KeyFrame records one idx1 keyframe entry's offset and size and
// extends the running cumulative keyframe byte count. It records no chunk
// ordinal; AppendIdx1Offset keeps every entry's position for that.
func (si *StreamIndex) AppendIdx1KeyFrame(offset int64, size uint32) {
	si.keyOffsets = append(si.keyOffsets, offset)
	si.keySizes = append(si.keySizes, size)
	prev := int64(0)
	if n := len(si.cumulativeKeyFrameBytes); n > 0 {
		prev = si.cumulativeKeyFrameBytes[n-1]
	}
	si.cumulativeKeyFrameBytes = append(si.cumulativeKeyFrameBytes, prev+int64(size))
}

// IncrementIdx1ChunkCount advances the running count of idx1 entries seen
// for this stream, keyframe or not.
func (si *StreamIndex) IncrementIdx1ChunkCount() { si.idx1ChunkCount++ }

// InstallSuperIndex is called once from hdrl when an indx chunk is present.
// It allocates one pending StandardIndexSegment per row.
func (si *StreamIndex) InstallSuperIndex(entries []SuperIndexEntry) {
	if si.superIndex != nil {
		return // idempotent: a repeated indx for this stream is a no-op.
	}
	si.superIndex = entries
	si.segments = make([]StandardIndexSegment, len(entries))
	si.cumulativeTicks = make([]int64, len(entries))
	var running int64
	for i, e := range entries {
		running += int64(e.DurationTicks)
		si.cumulativeTicks[i] = running
	}
}

// InstallStandardIndex loads one segment's keyframe table, either from the
// single-segment case during hdrl (chunkPosition == UnsetOffset) or from an
// ix## chunk encountered while scanning movi. Re-loading an already-loaded
// segment is a no-op, matching the idempotence the original guarantees for
// re-parsed index chunks.
func (si *StreamIndex) InstallStandardIndex(segmentIndex int, segment StandardIndexSegment, chunkPosition int64) {
	if segmentIndex < 0 || segmentIndex >= len(si.segments) {
		return
	}
	if si.segments[segmentIndex].Loaded {
		return
	}
	var base int64
	for j := 0; j < segmentIndex; j++ {
		base += si.segments[j].TotalEntryCount
	}
	segment.Loaded = true
	if len(segment.KeyFrameGlobalOrdinals) == 0 {
		segment.KeyFrameGlobalOrdinals = make([]int64, len(segment.KeyFrameOffsets))
	}
	for i := range segment.KeyFrameGlobalOrdinals {
		segment.KeyFrameGlobalOrdinals[i] += base
	}
	si.segments[segmentIndex] = segment
	if si.pending != nil && si.pending.SegmentIndex == segmentIndex {
		si.pending = nil
	}
	_ = chunkPosition // recorded by the caller's index-chunk bookkeeping, not here.
}

// indicesBasedOnAllFrames reports whether every frame (not just keyframes)
// has a known position, which lets timestamps be derived purely from chunk
// ordinal rather than from cumulative keyframe byte proportion.
func (si *StreamIndex) indicesBasedOnAllFrames() bool {
	if si.idx1ChunkCount == si.streamHeaderChunkCount && si.streamHeaderChunkCount > 0 {
		return true
	}
	if len(si.segments) == 0 {
		return false
	}
	var total int64
	for _, seg := range si.segments {
		if !seg.Loaded {
			return false
		}
		total += seg.TotalEntryCount
	}
	return total == si.streamHeaderChunkCount && si.streamHeaderChunkCount > 0
}

func (si *StreamIndex) isOpenDML() bool { return len(si.superIndex) > 0 }

func (si *StreamIndex) totalKeyFrameBytes() int64 {
	if n := len(si.cumulativeKeyFrameBytes); n > 0 {
		return si.cumulativeKeyFrameBytes[n-1]
	}
	return 0
}

// TimestampForOffset classifies and answers chunkOffset -> presentation
// time per the three branches: all-frames-indexed, OpenDML segment
// proportion, or sparse-keyframe byte proportion.
func (si *StreamIndex) TimestampForOffset(offset int64) (int64, bool) {
	if si.indicesBasedOnAllFrames() {
		if si.isOpenDML() {
			if ord, ok := si.globalOrdinalForOffsetSegments(offset); ok {
				return si.timeForOrdinal(ord), true
			}
			return 0, false
		}
		idx := indexOfInt64(si.allOffsets, offset)
		if idx < 0 {
			return 0, false
		}
		return si.timeForOrdinal(int64(idx)), true
	}
	if si.isOpenDML() {
		segIdx, entryIdx, ok := si.findLoadedSegmentEntry(offset)
		if !ok {
			return 0, false
		}
		seg := si.segments[segIdx]
		var bytesBefore int64
		for i := 0; i < entryIdx; i++ {
			bytesBefore += int64(seg.KeyFrameSizes[i])
		}
		ticksStart := int64(0)
		if segIdx > 0 {
			ticksStart = si.cumulativeTicks[segIdx-1]
		}
		ticksEnd := si.cumulativeTicks[segIdx]
		totalTicks := si.cumulativeTicks[len(si.cumulativeTicks)-1]
		segBytesTotal := sumUint32(seg.KeyFrameSizes)
		var frac int64
		if segBytesTotal > 0 {
			frac = bytesBefore * int64(ticksEnd-ticksStart) / segBytesTotal
		}
		ticks := ticksStart + frac
		if totalTicks == 0 {
			return 0, true
		}
		return ticks * si.durationUs / totalTicks, true
	}
	idx := indexOfInt64(si.keyOffsets, offset)
	if idx < 0 {
		return 0, false
	}
	total := si.totalKeyFrameBytes()
	if total == 0 {
		return 0, true
	}
	var before int64
	if idx > 0 {
		before = si.cumulativeKeyFrameBytes[idx-1]
	}
	return before * si.durationUs / total, true
}

func (si *StreamIndex) timeForOrdinal(ordinal int64) int64 {
	if si.streamHeaderChunkCount == 0 {
		return 0
	}
	return ordinal * si.durationUs / si.streamHeaderChunkCount
}

func (si *StreamIndex) globalOrdinalForOffsetSegments(offset int64) (int64, bool) {
	segIdx, entryIdx, ok := si.findLoadedSegmentEntry(offset)
	if !ok {
		return 0, false
	}
	return si.segments[segIdx].KeyFrameGlobalOrdinals[entryIdx], true
}

func (si *StreamIndex) findLoadedSegmentEntry(offset int64) (segIdx, entryIdx int, ok bool) {
	for i, seg := range si.segments {
		if !seg.Loaded {
			continue
		}
		if j := indexOfInt64(seg.KeyFrameOffsets, offset); j >= 0 {
			return i, j, true
		}
	}
	return 0, 0, false
}

// SeekPoints answers a time-based seek request. It either returns one or
// two candidate points straddling timeUs, or — when the target falls inside
// an unloaded OpenDML segment — records and returns that segment's ix##
// chunk offset as a pending detour.
func (si *StreamIndex) SeekPoints(timeUs int64) SeekAnswer {
	if si.isOpenDML() {
		return si.seekPointsOpenDML(timeUs)
	}
	return si.seekPointsKeyframeArray(timeUs)
}

func (si *StreamIndex) seekPointsOpenDML(timeUs int64) SeekAnswer {
	totalTicks := int64(0)
	if n := len(si.cumulativeTicks); n > 0 {
		totalTicks = si.cumulativeTicks[n-1]
	}
	targetTicks := int64(0)
	if si.durationUs > 0 {
		targetTicks = timeUs * totalTicks / si.durationUs
	}
	// cumulativeTicks holds each segment's cumulative *end* tick, so the
	// segment containing targetTicks is the first one whose end tick has
	// not yet passed it — a ceiling search, not a floor.
	segIdx := binarySearchCeilInt64(si.cumulativeTicks, targetTicks)
	if segIdx < 0 {
		segIdx = 0
	}
	seg := si.segments[segIdx]
	if !seg.Loaded {
		si.pending = &PendingSeek{SegmentIndex: segIdx, ByteOffset: si.superIndex[segIdx].IxChunkOffset}
		return SeekAnswer{Ready: false, Pending: si.pending.ByteOffset}
	}
	if len(seg.KeyFrameOffsets) == 0 {
		// Degenerate empty segment: fall through to segment start.
		return SeekAnswer{Ready: true, Points: extractor.SeekPoints{
			First: extractor.SeekPoint{TimeUs: 0, ByteOffset: seg.BaseOffset},
		}}
	}
	times := make([]int64, len(seg.KeyFrameOffsets))
	for i, off := range seg.KeyFrameOffsets {
		t, _ := si.TimestampForOffset(off)
		times[i] = t
	}
	floor := binarySearchFloorInt64(times, timeUs)
	first := extractor.SeekPoint{TimeUs: times[floor], ByteOffset: seg.KeyFrameOffsets[floor]}
	if times[floor] == timeUs {
		return SeekAnswer{Ready: true, Points: extractor.SeekPoints{First: first, Second: first}}
	}
	if floor < len(seg.KeyFrameOffsets)-1 {
		second := extractor.SeekPoint{TimeUs: times[floor+1], ByteOffset: seg.KeyFrameOffsets[floor+1]}
		return SeekAnswer{Ready: true, Points: extractor.SeekPoints{First: first, Second: second}}
	}
	// Last keyframe of this segment: peek into the next loaded segment for
	// a successor point if one exists, else return only the floor.
	if segIdx+1 < len(si.segments) && si.segments[segIdx+1].Loaded && len(si.segments[segIdx+1].KeyFrameOffsets) > 0 {
		nextOff := si.segments[segIdx+1].KeyFrameOffsets[0]
		nextT, _ := si.TimestampForOffset(nextOff)
		second := extractor.SeekPoint{TimeUs: nextT, ByteOffset: nextOff}
		return SeekAnswer{Ready: true, Points: extractor.SeekPoints{First: first, Second: second}}
	}
	return SeekAnswer{Ready: true, Points: extractor.SeekPoints{First: first, Second: first}}
}

func (si *StreamIndex) seekPointsKeyframeArray(timeUs int64) SeekAnswer {
	if len(si.keyOffsets) == 0 {
		return SeekAnswer{Ready: true, Points: extractor.SeekPoints{First: extractor.StartSeekPoint, Second: extractor.StartSeekPoint}}
	}
	times := make([]int64, len(si.keyOffsets))
	for i, off := range si.keyOffsets {
		t, _ := si.TimestampForOffset(off)
		times[i] = t
	}
	floor := binarySearchFloorInt64(times, timeUs)
	first := extractor.SeekPoint{TimeUs: times[floor], ByteOffset: si.keyOffsets[floor]}
	if times[floor] == timeUs || floor == len(times)-1 {
		return SeekAnswer{Ready: true, Points: extractor.SeekPoints{First: first, Second: first}}
	}
	second := extractor.SeekPoint{TimeUs: times[floor+1], ByteOffset: si.keyOffsets[floor+1]}
	return SeekAnswer{Ready: true, Points: extractor.SeekPoints{First: first, Second: second}}
}

// PendingSeekOffset reports the byte offset of the still-unsatisfied
// segment load, if any.
func (si *StreamIndex) PendingSeekOffset() (int64, bool) {
	if si.pending == nil {
		return 0, false
	}
	return si.pending.ByteOffset, true
}

// WillSeekTo reports whether honoring a seek to timeUs requires a pending
// segment-load detour before position can be trusted.
func (si *StreamIndex) WillSeekTo(position int64, timeUs int64) bool {
	ans := si.SeekPoints(timeUs)
	return !ans.Ready
}

// Report produces a one-line diagnostic summary, logged once per stream
// after idx1 parsing completes.
func (si *StreamIndex) Report() string {
	openDML := "no"
	if si.isOpenDML() {
		openDML = "yes"
	}
	return "chunks=" + strconv.FormatInt(si.idx1ChunkCount, 10) +
		" keyframes=" + strconv.Itoa(len(si.keyOffsets)) +
		" opendml=" + openDML +
		" silentGaps=" + strconv.Itoa(si.silentGapCount)
}

// noteSilentGap increments the diagnostic counter described in the design
// notes around the MP3 reader's pendingIXChunkIndex gap behaviour.
func (si *StreamIndex) noteSilentGap() { si.silentGapCount++ }

// --- small numeric helpers -------------------------------------------------

func indexOfInt64(arr []int64, v int64) int {
	// Keyframe offsets are appended in increasing order, so a binary search
	// would do, but arrays here are typically small (hundreds of entries);
	// a linear scan keeps this file readable and is not the hot path (it
	// runs once per index lookup, not once per byte).
	for i, x := range arr {
		if x == v {
			return i
		}
	}
	return -1
}

func sumUint32(arr []uint32) int64 {
	var s int64
	for _, v := range arr {
		s += int64(v)
	}
	return s
}

// binarySearchFloorInt64 returns the index of the largest element <= target,
// clamped into [0, len(arr)-1] (stayInBounds semantics): if target is less
// than every element, index 0 is returned.
func binarySearchFloorInt64(arr []int64, target int64) int {
	if len(arr) == 0 {
		return -1
	}
	lo, hi := 0, len(arr)-1
	if target < arr[0] {
		return 0
	}
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if arr[mid] <= target {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// binarySearchCeilInt64 returns the index of the smallest element >= target,
// clamped into [0, len(arr)-1] (stayInBounds semantics): if target exceeds
// every element, the last index is returned.
func binarySearchCeilInt64(arr []int64, target int64) int {
	if len(arr) == 0 {
		return -1
	}
	if target > arr[len(arr)-1] {
		return len(arr) - 1
	}
	lo, hi := 0, len(arr)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if arr[mid] >= target {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}
