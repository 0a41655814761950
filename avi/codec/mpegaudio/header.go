// Package mpegaudio implements the minimal MPEG-1/2 audio frame header
// parser an AVI MP3 chunk reader needs: sync-word validation and frame size
// computation, so the demuxer can resync inside a chunk after junk bytes or
// a dropped frame.
package mpegaudio

// Header is a decoded 4-byte MPEG audio frame header.
type Header struct {
	Version      int // 1 = MPEG1, 2 = MPEG2, 25 = MPEG2.5
	Layer        int // 1, 2 or 3
	BitrateKbps  int
	SampleRate   int
	Padding      bool
	ChannelCount int
	FrameSize    int
	SamplesPerFrame int
}

var mpeg1Layer3Bitrates = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
var mpeg2Layer3Bitrates = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}

var sampleRatesByVersion = map[int][4]int{
	1:  {44100, 48000, 32000, 0},
	2:  {22050, 24000, 16000, 0},
	25: {11025, 12000, 8000, 0},
}

// ParseHeader validates a 4-byte candidate header and decodes it. It
// returns ok=false for anything that fails the standard sync/reserved-bits
// validity predicate, which is the signal the MP3 chunk reader uses to
// slide its scratch buffer by one byte and try again.
func ParseHeader(b []byte) (Header, bool) {
	if len(b) < 4 {
		return Header{}, false
	}
	if b[0] != 0xFF || (b[1]&0xE0) != 0xE0 {
		return Header{}, false
	}
	versionBits := (b[1] >> 3) & 0x3
	layerBits := (b[1] >> 1) & 0x3
	if layerBits == 0 {
		return Header{}, false
	}
	var version int
	switch versionBits {
	case 3:
		version = 1
	case 2:
		version = 2
	case 0:
		version = 25
	default:
		return Header{}, false
	}
	layer := 4 - int(layerBits)

	bitrateIdx := (b[2] >> 4) & 0xF
	if bitrateIdx == 0 || bitrateIdx == 15 {
		return Header{}, false
	}
	sampleRateIdx := (b[2] >> 2) & 0x3
	rates, ok := sampleRatesByVersion[version]
	if !ok || rates[sampleRateIdx] == 0 {
		return Header{}, false
	}
	sampleRate := rates[sampleRateIdx]
	padding := (b[2]>>1)&0x1 != 0

	channelMode := (b[3] >> 6) & 0x3
	channels := 2
	if channelMode == 3 {
		channels = 1
	}

	var bitrate int
	if layer == 3 {
		if version == 1 {
			bitrate = mpeg1Layer3Bitrates[bitrateIdx]
		} else {
			bitrate = mpeg2Layer3Bitrates[bitrateIdx]
		}
	} else {
		bitrate = mpeg1Layer3Bitrates[bitrateIdx]
	}
	if bitrate == 0 {
		return Header{}, false
	}

	samplesPerFrame := 1152
	if version != 1 {
		samplesPerFrame = 576
	}

	padBytes := 0
	if padding {
		padBytes = 1
	}
	frameSize := (samplesPerFrame/8)*bitrate*1000/sampleRate + padBytes

	return Header{
		Version:         version,
		Layer:           layer,
		BitrateKbps:     bitrate,
		SampleRate:      sampleRate,
		Padding:         padding,
		ChannelCount:    channels,
		FrameSize:        frameSize,
		SamplesPerFrame: samplesPerFrame,
	}, true
}
