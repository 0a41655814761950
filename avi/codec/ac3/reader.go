// Package ac3 implements a minimal ATSC A/52 ("AC-3") frame-sync packet
// reader: the black-box CodecReader an AVI AC3 chunk reader hands payload
// bytes to. It finds the 0x0B77 sync word, reads just enough of the BSI to
// size the frame, and emits one sample per frame it completes.
package ac3

import "github.com/charlescerisier/avixer/extractor"

// frameSizeWords is the standard A/52 frame-size table indexed directly by
// [samplerate-code][frmsizecod] (0-37); values are in 16-bit words. Each
// bitrate occupies two consecutive frmsizecod rows with identical 48kHz and
// 32kHz word counts, the odd row adding one extra word at 44.1kHz to cover
// that rate's non-integral bitrate/frame-length relationship.
var frameSizeWords = [3][38]int{
	{ // 48kHz
		64, 64, 80, 80, 96, 96, 112, 112, 128, 128, 160, 160, 192, 192, 224, 224,
		256, 256, 320, 320, 384, 384, 448, 448, 512, 512, 640, 640, 768, 768,
		896, 896, 1024, 1024, 1152, 1152, 1280, 1280,
	},
	{ // 44.1kHz
		69, 70, 87, 88, 104, 105, 121, 122, 139, 140, 174, 175, 208, 209, 243, 244,
		278, 279, 348, 349, 417, 418, 487, 488, 557, 558, 696, 697, 835, 836,
		975, 976, 1114, 1115, 1253, 1254, 1393, 1394,
	},
	{ // 32kHz
		96, 96, 120, 120, 144, 144, 168, 168, 192, 192, 240, 240, 288, 288, 336, 336,
		384, 384, 480, 480, 576, 576, 672, 672, 768, 768, 960, 960, 1152, 1152,
		1344, 1344, 1536, 1536, 1728, 1728, 1920, 1920,
	},
}

var sampleRates = [3]int{48000, 44100, 32000}

// Reader accumulates bytes into a scratch buffer, scans for sync, and
// delivers completed frames to a TrackOutput as it goes.
type Reader struct {
	out   extractor.TrackOutput
	timeUs int64

	scratch      []byte
	scratchLen   int
	sampleRate   int
	frameSize    int
	haveFrame    bool
}

func NewReader(out extractor.TrackOutput) *Reader {
	return &Reader{out: out, scratch: make([]byte, 0, 3840)}
}

// PacketStarted resets the clock for the next run of frames to timeUs; the
// caller (Ac3ChunkReader) invokes this before the first byte of each movi
// chunk that belongs to this stream.
func (r *Reader) PacketStarted(timeUs int64, flags int) {
	r.timeUs = timeUs
}

// Consume scans data for AC3 sync, slicing out and emitting complete
// frames, and keeping any trailing partial frame in scratch for the next
// call. It never returns an error for unsynced data — sync loss is the
// ordinary Recoverable case the spec assigns to the caller, not this
// reader, whose job is purely segmentation.
func (r *Reader) Consume(data []byte) {
	r.scratch = append(r.scratch[:r.scratchLen], data...)
	r.scratchLen = len(r.scratch)

	pos := 0
	for {
		if !r.haveFrame {
			syncAt := findSync(r.scratch[pos:r.scratchLen])
			if syncAt < 0 {
				break
			}
			pos += syncAt
			if r.scratchLen-pos < 6 {
				break
			}
			size, rate, ok := parseFrameSize(r.scratch[pos : pos+6])
			if !ok {
				pos++
				continue
			}
			r.frameSize = size
			r.sampleRate = rate
			r.haveFrame = true
		}
		if r.scratchLen-pos < r.frameSize {
			break
		}
		n, _ := r.out.SampleData(r.scratch[pos : pos+r.frameSize])
		r.out.SampleMetadata(r.timeUs, extractor.SampleFlagKeyFrame, n, 0)
		if r.sampleRate > 0 {
			r.timeUs += int64(1536) * 1000000 / int64(r.sampleRate)
		}
		pos += r.frameSize
		r.haveFrame = false
	}
	remaining := copy(r.scratch, r.scratch[pos:r.scratchLen])
	r.scratchLen = remaining
	r.scratch = r.scratch[:remaining]
}

func findSync(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == 0x0B && b[i+1] == 0x77 {
			return i
		}
	}
	return -1
}

// parseFrameSize decodes fscod/frmsizecod from the first 6 bytes of a frame
// (the 0x0B77 sync word included) and returns the frame size in bytes.
func parseFrameSize(b []byte) (size int, sampleRate int, ok bool) {
	if len(b) < 6 {
		return 0, 0, false
	}
	fscod := (b[4] >> 6) & 0x3
	frmsizecod := b[4] & 0x3F
	if fscod == 3 || int(frmsizecod) >= len(frameSizeWords[0]) {
		return 0, 0, false
	}
	words := frameSizeWords[fscod][frmsizecod]
	return words * 2, sampleRates[fscod], true
}
