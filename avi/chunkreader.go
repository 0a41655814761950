package avi

import (
	"github.com/charlescerisier/avixer/avi/codec/ac3"
	"github.com/charlescerisier/avixer/avi/codec/mpegaudio"
	"github.com/charlescerisier/avixer/extractor"
)

// ChunkReaderKind tags which of the three concrete behaviours a ChunkReader
// performs. A tagged variant was chosen over a small class hierarchy
// because the only two behaviours that vary per stream type are chunk-body
// consumption and seek invalidation — not enough surface to justify
// dynamic dispatch over a switch on a field.
type ChunkReaderKind int

const (
	ChunkReaderVideo ChunkReaderKind = iota
	ChunkReaderMp3
	ChunkReaderAc3
)

// ChunkReader consumes one stream's movi chunk bodies and turns them into
// timed samples on a TrackOutput.
type ChunkReader struct {
	Kind         ChunkReaderKind
	StreamID     int
	ChunkID      [4]byte
	AltChunkID   [4]byte // video only; zero value means "none"
	IndexChunkID [4]byte

	StreamHeaderChunkCount int64
	DurationUs             int64
	Index                  *StreamIndex
	Out                    extractor.TrackOutput

	// Shared per-chunk bookkeeping.
	currentChunkSize   int64
	bytesRemaining     int64
	currentChunkOffset int64
	indexChunkStart    bool

	// Video variant state.
	video videoState

	// MP3 variant state.
	mp3 mp3State

	// AC3 variant state.
	ac3Reader *ac3.Reader
}

type videoState struct {
	chunkIndexKnown bool
	chunkTimeUs     int64
	isKeyFrame      bool
}

type mp3State struct {
	scratch        []byte
	scratchLen     int
	frameRemaining int
	frameSize      int
	haveTimeUs     bool
	timeUs         int64
	sampleRate     int
}

// NewChunkReader builds a reader for one stream; kind selects which variant
// behaviour OnChunkData and InvalidateCurrentChunkPosition run.
func NewChunkReader(kind ChunkReaderKind, streamID int, chunkID, altChunkID, indexChunkID [4]byte, headerChunkCount int64, durationUs int64, index *StreamIndex, out extractor.TrackOutput) *ChunkReader {
	cr := &ChunkReader{
		Kind:                   kind,
		StreamID:               streamID,
		ChunkID:                chunkID,
		AltChunkID:             altChunkID,
		IndexChunkID:           indexChunkID,
		StreamHeaderChunkCount: headerChunkCount,
		DurationUs:             durationUs,
		Index:                  index,
		Out:                    out,
	}
	if kind == ChunkReaderAc3 {
		cr.ac3Reader = ac3.NewReader(out)
	}
	cr.mp3.scratch = make([]byte, 0, 4096)
	return cr
}

// Handles reports whether fourCC is this reader's primary, alternative, or
// index chunk id.
func (cr *ChunkReader) Handles(fourCC [4]byte) bool {
	return fourCC == cr.ChunkID || (cr.AltChunkID != [4]byte{} && fourCC == cr.AltChunkID) || fourCC == cr.IndexChunkID
}

// OnChunkStart captures a new chunk's size and position and flags whether
// it is this stream's index chunk.
func (cr *ChunkReader) OnChunkStart(fourCC [4]byte, size uint32, offset int64) {
	cr.currentChunkSize = int64(size)
	cr.bytesRemaining = int64(size)
	cr.currentChunkOffset = offset
	cr.indexChunkStart = fourCC == cr.IndexChunkID
	if cr.Kind == ChunkReaderVideo {
		cr.video.chunkIndexKnown = false
	}
}

// OnChunkData consumes as much of the current chunk's body as is available
// from in, returning done=true once the whole chunk has been consumed (or
// handled as an index chunk).
func (cr *ChunkReader) OnChunkData(in extractor.Input) (done bool, err error) {
	if cr.indexChunkStart {
		return cr.readIndexChunk(in)
	}
	switch cr.Kind {
	case ChunkReaderVideo:
		return cr.onVideoChunkData(in)
	case ChunkReaderMp3:
		return cr.onMp3ChunkData(in)
	case ChunkReaderAc3:
		return cr.onAc3ChunkData(in)
	default:
		return true, unsupportedErr("chunk reader", nil)
	}
}

// InvalidateCurrentChunkPosition resets variant-specific resolved state
// after a seek, so the next chunk re-derives its timestamp from the index
// rather than trusting stale bookkeeping.
func (cr *ChunkReader) InvalidateCurrentChunkPosition() {
	switch cr.Kind {
	case ChunkReaderVideo:
		cr.video = videoState{}
	case ChunkReaderMp3:
		cr.mp3.haveTimeUs = false
		cr.mp3.frameRemaining = 0
		cr.mp3.scratchLen = 0
	case ChunkReaderAc3:
		cr.ac3Reader.PacketStarted(0, 0)
	}
}

func (cr *ChunkReader) readIndexChunk(in extractor.Input) (bool, error) {
	body := make([]byte, cr.currentChunkSize)
	if err := in.ReadFully(body); err != nil {
		return false, err
	}
	super, std, err := parseIndexChunkBody(body, cr.currentChunkOffset)
	if err != nil {
		return false, err
	}
	if super != nil {
		cr.Index.InstallSuperIndex(super)
	}
	if std != nil {
		segIdx := cr.resolveSegmentIndexForOffset(cr.currentChunkOffset)
		cr.Index.InstallStandardIndex(segIdx, *std, cr.currentChunkOffset)
	}
	cr.bytesRemaining = 0
	return true, nil
}

// resolveSegmentIndexForOffset matches an ix## chunk being parsed back to
// its row in the super-index by byte offset, since the chunk itself does
// not carry its own segment index.
func (cr *ChunkReader) resolveSegmentIndexForOffset(chunkOffset int64) int {
	for i, e := range cr.Index.superIndex {
		if e.IxChunkOffset == chunkOffset {
			return i
		}
	}
	return 0
}

// --- Video ------------------------------------------------------------

func (cr *ChunkReader) onVideoChunkData(in extractor.Input) (bool, error) {
	if !cr.video.chunkIndexKnown {
		t, ok := cr.Index.TimestampForOffset(cr.currentChunkOffset)
		if !ok {
			// Recoverable: the timestamp isn't resolvable yet, whether
			// because no index covers this offset or because a segment
			// load is still pending. Drop the chunk rather than latching
			// a fabricated zero timestamp onto chunkIndexKnown, which
			// would never get corrected once the pending segment loads.
			if err := in.SkipFully(cr.bytesRemaining); err != nil {
				return false, err
			}
			cr.bytesRemaining = 0
			return true, nil
		}
		cr.video.chunkTimeUs = t
		cr.video.isKeyFrame = cr.isKeyFrameOffset(cr.currentChunkOffset)
		cr.video.chunkIndexKnown = true
	}
	if cr.bytesRemaining > 0 {
		n, err := cr.Out.SampleDataFromInput(in, int(cr.bytesRemaining), false)
		if err != nil {
			return false, err
		}
		cr.bytesRemaining -= int64(n)
	}
	if cr.bytesRemaining == 0 {
		flags := extractor.SampleFlags(0)
		if cr.video.isKeyFrame {
			flags = extractor.SampleFlagKeyFrame
		}
		cr.Out.SampleMetadata(cr.video.chunkTimeUs, flags, int(cr.currentChunkSize), 0)
		return true, nil
	}
	return false, nil
}

func (cr *ChunkReader) isKeyFrameOffset(offset int64) bool {
	if indexOfInt64(cr.Index.keyOffsets, offset) >= 0 {
		return true
	}
	for _, seg := range cr.Index.segments {
		if seg.Loaded && indexOfInt64(seg.KeyFrameOffsets, offset) >= 0 {
			return true
		}
	}
	return false
}

// --- MP3 ---------------------------------------------------------------

const mp3ScratchMin = 16

func (cr *ChunkReader) onMp3ChunkData(in extractor.Input) (bool, error) {
	if !cr.mp3.haveTimeUs {
		if t, ok := cr.Index.TimestampForOffset(cr.currentChunkOffset); ok {
			cr.mp3.timeUs = t
			cr.mp3.haveTimeUs = true
		} else if _, pending := cr.Index.PendingSeekOffset(); pending {
			// First packet of a seek run with a segment still loading:
			// do not fabricate a timestamp yet.
		} else {
			cr.Index.noteSilentGap()
		}
	}
	if cr.currentChunkSize == 0 {
		// Empty chunk: clock still advances by one frame, no sample.
		cr.mp3.timeUs += mp3FrameDurationUs(cr.mp3.sampleRate)
		cr.bytesRemaining = 0
		return true, nil
	}
	for cr.bytesRemaining > 0 {
		if cr.mp3.frameRemaining == 0 {
			hdr, headerBytes, ok, err := cr.syncMp3Header(in)
			if err != nil {
				return false, err
			}
			if !ok {
				// No findable header before the chunk ran out: drop the
				// rest of this chunk, still advance the clock one frame.
				if err := in.SkipFully(cr.bytesRemaining); err != nil {
					return false, err
				}
				cr.bytesRemaining = 0
				cr.mp3.timeUs += mp3FrameDurationUs(cr.mp3.sampleRate)
				return true, nil
			}
			cr.mp3.frameRemaining = hdr.FrameSize - headerBytes
			cr.mp3.frameSize = hdr.FrameSize
			cr.mp3.sampleRate = hdr.SampleRate
		}
		n := cr.mp3.frameRemaining
		if int64(n) > cr.bytesRemaining {
			n = int(cr.bytesRemaining)
		}
		written, err := cr.Out.SampleDataFromInput(in, n, false)
		if err != nil {
			return false, err
		}
		cr.bytesRemaining -= int64(written)
		cr.mp3.frameRemaining -= written
		if cr.mp3.frameRemaining == 0 {
			cr.Out.SampleMetadata(cr.mp3.timeUs, extractor.SampleFlagKeyFrame, cr.mp3.frameSize, 0)
			cr.mp3.timeUs += mp3FrameDurationUs(cr.mp3.sampleRate)
		}
	}
	return true, nil
}

// syncMp3Header scans the rest of the current chunk for a valid MPEG audio
// sync by sliding one byte at a time, the way a stray ID3 tail or zero padding is
// shaken off before resuming frame-aligned reads. It returns the decoded
// header with FrameSize still covering the whole frame (header bytes
// included) plus the number of header bytes already consumed, so the
// caller can track remaining payload separately while keeping the original
// frame size around for SampleMetadata's size report.
func (cr *ChunkReader) syncMp3Header(in extractor.Input) (mpegaudio.Header, int, bool, error) {
	window := make([]byte, 4)
	for cr.bytesRemaining >= 4 {
		if err := in.PeekFully(window); err != nil {
			return mpegaudio.Header{}, 0, false, nil
		}
		if hdr, ok := mpegaudio.ParseHeader(window); ok {
			if err := in.ReadFully(window); err != nil {
				return mpegaudio.Header{}, 0, false, err
			}
			cr.bytesRemaining -= 4
			n, err := cr.Out.SampleData(window)
			if err != nil {
				return mpegaudio.Header{}, 0, false, err
			}
			return hdr, n, true, nil
		}
		if err := in.SkipFully(1); err != nil {
			return mpegaudio.Header{}, 0, false, err
		}
		cr.bytesRemaining--
	}
	return mpegaudio.Header{}, 0, false, nil
}

func mp3FrameDurationUs(sampleRate int) int64 {
	if sampleRate == 0 {
		sampleRate = 44100
	}
	return 1152 * 1000000 / int64(sampleRate)
}

// --- AC3 -----------------------------------------------------------------

func (cr *ChunkReader) onAc3ChunkData(in extractor.Input) (bool, error) {
	if cr.bytesRemaining == cr.currentChunkSize {
		t, _ := cr.Index.TimestampForOffset(cr.currentChunkOffset)
		cr.ac3Reader.PacketStarted(t, 0)
	}
	if cr.bytesRemaining == 0 {
		return true, nil
	}
	buf := make([]byte, cr.bytesRemaining)
	if err := in.ReadFully(buf); err != nil {
		return false, err
	}
	cr.ac3Reader.Consume(buf)
	cr.bytesRemaining = 0
	return true, nil
}
