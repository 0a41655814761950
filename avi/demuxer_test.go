package avi

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlescerisier/avixer/extractor"
	"github.com/charlescerisier/avixer/internal/loggingx"
)

// chunk appends a fourCC + little-endian size + body (+ pad byte on odd size).
func chunk(buf []byte, id string, body []byte) []byte {
	buf = append(buf, id...)
	sizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBuf, uint32(len(body)))
	buf = append(buf, sizeBuf...)
	buf = append(buf, body...)
	if len(body)%2 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

func list(buf []byte, listType string, body []byte) []byte {
	return chunk(buf, "LIST", append([]byte(listType), body...))
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// buildAviFixture assembles a minimal one-video-stream AVI file with a
// legacy idx1 index: two "00dc" keyframe chunks in movi.
func buildAviFixture(t *testing.T) []byte {
	t.Helper()

	avih := append([]byte{}, le32(33333)...) // MicroSecPerFrame
	avih = append(avih, le32(0)...)          // MaxBytesPerSec
	avih = append(avih, le32(0)...)          // PaddingGranularity
	avih = append(avih, le32(AVIFHasIndex)...)
	avih = append(avih, le32(2)...) // TotalFrames
	avih = append(avih, le32(0)...) // InitialFrames
	avih = append(avih, le32(1)...) // Streams
	avih = append(avih, le32(0)...) // SuggestedBufferSize
	avih = append(avih, le32(320)...)
	avih = append(avih, le32(240)...)
	avih = append(avih, make([]byte, 16)...) // Reserved[4]

	strh := append([]byte{}, []byte("vids")...)
	strh = append(strh, []byte("XVID")...) // Handler
	strh = append(strh, le32(0)...)        // Flags
	strh = append(strh, le16(0)...)        // Priority
	strh = append(strh, le16(0)...)        // Language
	strh = append(strh, le32(0)...)        // InitialFrames
	strh = append(strh, le32(1)...)        // Scale
	strh = append(strh, le32(30)...)       // Rate
	strh = append(strh, le32(0)...)        // Start
	strh = append(strh, le32(2)...)        // Length (chunk count)
	strh = append(strh, le32(0)...)        // SuggestedBufferSize
	strh = append(strh, le32(0)...)        // Quality
	strh = append(strh, le32(0)...)        // SampleSize
	strh = append(strh, make([]byte, 8)...) // Frame rect

	strf := append([]byte{}, le32(40)...) // Size
	strf = append(strf, le32(320)...)     // Width
	strf = append(strf, le32(240)...)     // Height
	strf = append(strf, le16(1)...)       // Planes
	strf = append(strf, le16(24)...)      // BitCount
	strf = append(strf, []byte("XVID")...)
	strf = append(strf, le32(0)...)  // SizeImage
	strf = append(strf, le32(0)...)  // XPelsPerMeter
	strf = append(strf, le32(0)...)  // YPelsPerMeter
	strf = append(strf, le32(0)...)  // ClrUsed
	strf = append(strf, le32(0)...)  // ClrImportant

	var strl []byte
	strl = chunk(strl, "strh", strh)
	strl = chunk(strl, "strf", strf)

	var hdrlBody []byte
	hdrlBody = chunk(hdrlBody, "avih", avih)
	hdrlBody = list(hdrlBody, "strl", strl)

	var file []byte
	file = list(file, "hdrl", hdrlBody)

	frame0 := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	frame1 := []byte{0x11, 0x22, 0x33, 0x44}
	var moviBody []byte
	moviBody = chunk(moviBody, "00dc", frame0)
	moviBody = chunk(moviBody, "00dc", frame1)

	file = list(file, "movi", moviBody)

	// idx1 offsets are relative to the "movi" fourCC position (base =
	// moviListStart + 8); the first chunk's offset is conventionally 4.
	entry := func(off, size uint32, key bool) []byte {
		var flags uint32
		if key {
			flags = AVIIFKeyFrame
		}
		b := append([]byte{}, []byte("00dc")...)
		b = append(b, le32(flags)...)
		b = append(b, le32(off)...)
		b = append(b, le32(size)...)
		return b
	}
	frame0Off := uint32(4)
	frame1Off := frame0Off + 8 + uint32(len(frame0))
	var idx1Body []byte
	idx1Body = append(idx1Body, entry(frame0Off, uint32(len(frame0)), true)...)
	idx1Body = append(idx1Body, entry(frame1Off, uint32(len(frame1)), true)...)
	file = chunk(file, "idx1", idx1Body)

	riffSize := uint32(4 + len(file)) // "AVI " + everything after it
	var out []byte
	out = append(out, []byte("RIFF")...)
	out = append(out, le32(riffSize)...)
	out = append(out, []byte("AVI ")...)
	out = append(out, file...)
	return out
}

type testOutput struct {
	format   extractor.Format
	samples  []sampleRec
}

type sampleRec struct {
	timeUs int64
	size   int
	key    bool
}

func (o *testOutput) Format(f extractor.Format) { o.format = f }
func (o *testOutput) SampleData(data []byte) (int, error) { return len(data), nil }
func (o *testOutput) SampleDataFromInput(in extractor.Input, n int, allowEOI bool) (int, error) {
	return n, in.SkipFully(int64(n))
}
func (o *testOutput) SampleMetadata(timeUs int64, flags extractor.SampleFlags, size int, offset int) {
	o.samples = append(o.samples, sampleRec{timeUs: timeUs, size: size, key: flags&extractor.SampleFlagKeyFrame != 0})
}

type testSink struct {
	outputs  []*testOutput
	seekMap  extractor.SeekMap
}

func (s *testSink) Track(id int, trackType string) extractor.TrackOutput {
	out := &testOutput{}
	s.outputs = append(s.outputs, out)
	return out
}
func (s *testSink) EndTracks()              {}
func (s *testSink) SeekMap(m extractor.SeekMap) { s.seekMap = m }

func TestAviDemuxerReadsFixture(t *testing.T) {
	data := buildAviFixture(t)
	in := newInput(t, data)

	sink := &testSink{}
	demuxer := NewAviDemuxer(sink, loggingx.Discard())

	for i := 0; i < 10000; i++ {
		result, err := demuxer.Read(in)
		require.NoError(t, err)
		if result == extractor.ResultEndOfInput {
			break
		}
	}

	require.Len(t, sink.outputs, 1)
	require.NotNil(t, sink.seekMap)
	require.True(t, sink.seekMap.IsSeekable())

	samples := sink.outputs[0].samples
	require.Len(t, samples, 2)
	require.True(t, samples[0].key)
	require.Equal(t, 4, samples[0].size)
	require.True(t, samples[1].key)
}
