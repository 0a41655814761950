package ape

import (
	"encoding/binary"

	"github.com/charlescerisier/avixer/extractor"
)

// IndexerState mirrors AviDemuxer's explicit-state approach: header parsing
// and frame delivery are two states of one driven read loop rather than one
// long call.
type IndexerState int

const (
	StateReadHeader IndexerState = iota
	StateReadFrames
)

// ffmpegFrameHeaderLength is the 8-byte (blocks, skip) header ApeIndexer
// prepends to every frame's payload, the layout apedec.c's
// ape_decode_frame() expects.
const ffmpegFrameHeaderLength = 8

// Indexer drives header parsing, seek-table reconstruction, and per-frame
// sample delivery for one APE stream.
type Indexer struct {
	state IndexerState
	sink  extractor.TrackSink
	out   extractor.TrackOutput

	info  Info
	table FrameTable

	currentFrame int

	// 4-byte data alignment causes adjacent frames to overlap in storage by
	// up to 4 bytes; caching the tail of the frame just emitted lets the
	// next frame be assembled without an extra seek when its start falls
	// inside that cached tail.
	cachedPosition int64
	cachedBytes    [4]byte
	haveCached     bool
}

func NewIndexer(sink extractor.TrackSink) *Indexer {
	return &Indexer{sink: sink, cachedPosition: -1}
}

// Read drives one step of the state machine.
func (idx *Indexer) Read(in extractor.Input) (extractor.Result, error) {
	switch idx.state {
	case StateReadHeader:
		return idx.readHeader(in)
	case StateReadFrames:
		in.ResetPeekPosition()
		return idx.readOneFrame(in)
	default:
		return extractor.ResultEndOfInput, nil
	}
}

func (idx *Indexer) readHeader(in extractor.Input) (extractor.Result, error) {
	in.ResetPeekPosition()
	info, err := ReadInfo(in)
	if err != nil {
		return 0, err
	}
	idx.info = info

	table, err := BuildFrameTable(info, in)
	if err != nil {
		return 0, err
	}
	idx.table = table

	idx.out = idx.sink.Track(0, "audio")
	idx.out.Format(idx.buildFormat(in.Length()))
	idx.sink.EndTracks()
	idx.sink.SeekMap(NewSeekTableSeekMap(info, table))

	if info.TotalFrames == 0 || len(table.Frames) == 0 {
		return extractor.ResultEndOfInput, nil
	}

	bytesSkip := table.Frames[0].Pos - in.Position()
	if err := in.SkipFully(bytesSkip); err != nil {
		return 0, err
	}
	idx.state = StateReadFrames
	idx.currentFrame = 0
	return extractor.ResultContinue, nil
}

func (idx *Indexer) buildFormat(fileLength int64) extractor.Format {
	var averageBitrate int
	if durationSec := idx.info.DurationUs / 1000000; durationSec > 0 && fileLength > 0 {
		averageBitrate = int((fileLength * 8) / durationSec)
	}
	return extractor.Format{
		MimeType:      "audio/x-ape",
		Codecs:        "ape",
		SampleRate:    int(idx.info.SampleRate),
		ChannelCount:  idx.info.Channels,
		AverageBitrate: averageBitrate,
		CodecInitData: [][]byte{idx.buildDecoderConfigExtraData()},
	}
}

// Seek repositions the indexer's frame cursor: position 0 re-reads the
// header from scratch, any other position resolves to the floor frame for
// timeUs via the seek map, matching ApeExtractor.seek's two branches.
func (idx *Indexer) Seek(position int64, timeUs int64) {
	if position == 0 {
		idx.state = StateReadHeader
		return
	}
	m := NewSeekTableSeekMap(idx.info, idx.table)
	idx.currentFrame = m.FrameIndexForTimeUs(timeUs)
}

func (idx *Indexer) readOneFrame(in extractor.Input) (extractor.Result, error) {
	if idx.currentFrame < 0 {
		idx.currentFrame = 0
	}
	if idx.currentFrame >= int(idx.info.TotalFrames) {
		return extractor.ResultEndOfInput, nil
	}

	frame := idx.table.Frames[idx.currentFrame]
	inputPosition := in.Position()
	cacheHit := false
	if frame.Pos != inputPosition {
		cacheHit = idx.haveCached && frame.Pos == idx.cachedPosition && inputPosition <= idx.cachedPosition+int64(len(idx.cachedBytes))
		if !cacheHit {
			// A seek map answer should always land exactly on a frame
			// boundary; reaching here means the host skipped unexpectedly.
			return extractor.ResultSeek, nil
		}
	}

	header := idx.createFfmpegFrameHeader(idx.currentFrame)
	bufferSize := frame.Size + ffmpegFrameHeaderLength

	written, err := idx.out.SampleData(header)
	if err != nil {
		return 0, err
	}
	bytesBuffered := written

	if cacheHit {
		bytesToCopy := int(inputPosition - frame.Pos)
		if bytesToCopy > 0 {
			n, err := idx.out.SampleData(idx.cachedBytes[:bytesToCopy])
			if err != nil {
				return 0, err
			}
			bytesBuffered += n
		}
	}

	remaining := bufferSize - bytesBuffered
	tailLen := len(idx.cachedBytes)
	if remaining < tailLen {
		tailLen = remaining
	}
	if bulk := remaining - tailLen; bulk > 0 {
		n, err := idx.out.SampleDataFromInput(in, bulk, false)
		if err != nil {
			return 0, err
		}
		bytesBuffered += n
	}
	if tailLen > 0 {
		tail := make([]byte, tailLen)
		if err := in.ReadFully(tail); err != nil {
			return 0, err
		}
		n, err := idx.out.SampleData(tail)
		if err != nil {
			return 0, err
		}
		bytesBuffered += n
		copy(idx.cachedBytes[len(idx.cachedBytes)-tailLen:], tail)
	}
	idx.cachedPosition = in.Position() - int64(len(idx.cachedBytes))
	idx.haveCached = true

	idx.outputSampleMetadata(idx.currentFrame, bufferSize)
	idx.currentFrame++

	if idx.currentFrame == int(idx.info.TotalFrames) {
		return extractor.ResultEndOfInput, nil
	}
	return extractor.ResultContinue, nil
}

func (idx *Indexer) outputSampleMetadata(frameIndex int, size int) {
	var timeUs int64
	if frameIndex != 0 {
		timeUs = timeUsForSamples(int64(frameIndex)*idx.info.BlocksPerFrame, idx.info.SampleRate)
	}
	idx.out.SampleMetadata(timeUs, extractor.SampleFlagKeyFrame, size, 0)
}

// buildDecoderConfigExtraData lays out the 6-byte (fileVersion,
// compressionType, formatFlags) triple apedec.c's ape_decode_frame() expects
// in Format.initializationData.
func (idx *Indexer) buildDecoderConfigExtraData() []byte {
	b := make([]byte, 6)
	binary.LittleEndian.PutUint16(b[0:2], uint16(idx.info.FileVersion))
	binary.LittleEndian.PutUint16(b[2:4], uint16(idx.info.CompressionType))
	binary.LittleEndian.PutUint16(b[4:6], uint16(idx.info.FormatFlags))
	return b
}

// createFfmpegFrameHeader lays out the 8-byte (blocks, skip) header that
// precedes each frame's payload in the buffer handed to trackOutput.
func (idx *Indexer) createFfmpegFrameHeader(frameIndex int) []byte {
	b := make([]byte, ffmpegFrameHeaderLength)
	binary.LittleEndian.PutUint32(b[0:4], uint32(idx.table.Frames[frameIndex].Blocks))
	binary.LittleEndian.PutUint32(b[4:8], uint32(idx.table.Frames[frameIndex].Skip))
	return b
}
