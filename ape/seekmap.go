package ape

import "github.com/charlescerisier/avixer/extractor"

// SeekTableSeekMap answers time-based seeks by binary-search-flooring into
// frameSamplesAddUp, mirroring ApeSeekTableSeekMap's inclusive/stay-in-bounds
// search semantics.
type SeekTableSeekMap struct {
	info    Info
	table   FrameTable
}

func NewSeekTableSeekMap(info Info, table FrameTable) *SeekTableSeekMap {
	return &SeekTableSeekMap{info: info, table: table}
}

func (m *SeekTableSeekMap) IsSeekable() bool  { return len(m.table.Frames) > 0 }
func (m *SeekTableSeekMap) DurationUs() int64 { return m.info.DurationUs }

func (m *SeekTableSeekMap) GetSeekPoints(timeUs int64) extractor.SeekPoints {
	if len(m.table.Frames) == 0 {
		return extractor.SeekPoints{First: extractor.StartSeekPoint, Second: extractor.StartSeekPoint}
	}
	samples := samplesAtTimeUs(timeUs, m.info.SampleRate, m.info.TotalSamples)
	frame := binarySearchFloorInt64(m.table.FrameSamplesAddUp, samples)
	point := extractor.SeekPoint{
		TimeUs:     timeUsForSamples(m.table.Frames[frame].PTS, m.info.SampleRate),
		ByteOffset: m.table.Frames[frame].Pos,
	}
	return extractor.SeekPoints{First: point, Second: point}
}

// FrameIndexForTimeUs returns the frame a seek to timeUs should resume
// decoding from, the Go equivalent of ApeExtractor.seek's non-zero-position
// branch.
func (m *SeekTableSeekMap) FrameIndexForTimeUs(timeUs int64) int {
	samples := samplesAtTimeUs(timeUs, m.info.SampleRate, m.info.TotalSamples)
	return binarySearchFloorInt64(m.table.FrameSamplesAddUp, samples)
}

func samplesAtTimeUs(timeUs, sampleRate, totalSamples int64) int64 {
	if sampleRate == 0 {
		return 0
	}
	sample := timeUs * sampleRate / 1000000
	if sample < 0 {
		return 0
	}
	if sample > totalSamples-1 {
		return totalSamples - 1
	}
	return sample
}

func timeUsForSamples(samples, sampleRate int64) int64 {
	if sampleRate == 0 {
		return 0
	}
	return samples * 1000000 / sampleRate
}

// binarySearchFloorInt64 returns the index of the largest element <= target,
// clamped into [0, len(arr)-1], matching Util.binarySearchFloor's
// inclusive=true, stayInBounds=true behaviour.
func binarySearchFloorInt64(arr []int64, target int64) int {
	if len(arr) == 0 {
		return -1
	}
	if target < arr[0] {
		return 0
	}
	lo, hi := 0, len(arr)-1
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
