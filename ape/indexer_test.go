package ape

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlescerisier/avixer/extractor"
)

type idxSampleRec struct {
	timeUs int64
	data   []byte
}

type idxTestOutput struct {
	format  extractor.Format
	samples []idxSampleRec
	pending []byte
}

func (o *idxTestOutput) Format(f extractor.Format) { o.format = f }
func (o *idxTestOutput) SampleData(data []byte) (int, error) {
	o.pending = append(o.pending, data...)
	return len(data), nil
}
func (o *idxTestOutput) SampleDataFromInput(in extractor.Input, n int, allowEOI bool) (int, error) {
	buf := make([]byte, n)
	if err := in.ReadFully(buf); err != nil {
		return 0, err
	}
	o.pending = append(o.pending, buf...)
	return n, nil
}
func (o *idxTestOutput) SampleMetadata(timeUs int64, flags extractor.SampleFlags, size int, offset int) {
	o.samples = append(o.samples, idxSampleRec{timeUs: timeUs, data: o.pending})
	o.pending = nil
}

type idxTestSink struct {
	out     *idxTestOutput
	seekMap extractor.SeekMap
	ended   bool
}

func (s *idxTestSink) Track(id int, trackType string) extractor.TrackOutput {
	s.out = &idxTestOutput{}
	return s.out
}
func (s *idxTestSink) EndTracks()                   { s.ended = true }
func (s *idxTestSink) SeekMap(m extractor.SeekMap)  { s.seekMap = m }

// buildAPEFixture assembles a minimal v3980 two-frame APE file with no gap
// between the header, seek table, and first frame.
func buildAPEFixture(t *testing.T) []byte {
	t.Helper()
	desc := make([]byte, 52)
	copy(desc[0:4], Signature)
	binary.LittleEndian.PutUint16(desc[4:6], 3990)
	binary.LittleEndian.PutUint32(desc[8:12], 52)
	binary.LittleEndian.PutUint32(desc[12:16], 24)
	binary.LittleEndian.PutUint32(desc[16:20], 8) // seek table length: 2 entries

	hdr := make([]byte, 24)
	binary.LittleEndian.PutUint16(hdr[0:2], 2000)
	binary.LittleEndian.PutUint16(hdr[2:4], 0)
	binary.LittleEndian.PutUint32(hdr[4:8], 100) // blocksPerFrame
	binary.LittleEndian.PutUint32(hdr[8:12], 50) // finalFrameBlocks
	binary.LittleEndian.PutUint32(hdr[12:16], 2) // totalFrames
	binary.LittleEndian.PutUint16(hdr[16:18], 16)
	binary.LittleEndian.PutUint16(hdr[18:20], 1) // channels
	binary.LittleEndian.PutUint32(hdr[20:24], 1000) // sampleRate

	seekTable := append(le32(84), le32(92)...)

	frame0 := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	frame1 := []byte{11, 12, 13, 14, 15, 16, 17, 18}

	var out []byte
	out = append(out, desc...)
	out = append(out, hdr...)
	out = append(out, seekTable...)
	out = append(out, frame0...)
	out = append(out, frame1...)
	return out
}

func TestIndexerFullReadLoop(t *testing.T) {
	data := buildAPEFixture(t)
	in := extractor.NewFileInput(bytes.NewReader(data), int64(len(data)))

	sink := &idxTestSink{}
	idx := NewIndexer(sink)

	for i := 0; i < 100; i++ {
		result, err := idx.Read(in)
		require.NoError(t, err)
		if result == extractor.ResultEndOfInput {
			break
		}
	}

	require.True(t, sink.ended)
	require.NotNil(t, sink.seekMap)
	require.Equal(t, "audio/x-ape", sink.out.format.MimeType)
	require.Len(t, sink.out.format.CodecInitData, 1)
	require.Equal(t, 6, len(sink.out.format.CodecInitData[0]))

	require.Len(t, sink.out.samples, 2)
	// Each sample is an 8-byte ffmpeg frame header followed by the payload.
	require.Equal(t, int64(0), sink.out.samples[0].timeUs)
	require.Equal(t, []byte{100, 0, 0, 0, 0, 0, 0, 0}, sink.out.samples[0].data[:8])
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, sink.out.samples[0].data[8:])

	require.Equal(t, int64(100000), sink.out.samples[1].timeUs) // frame 1 at 100 blocks / 1000 Hz
	require.Equal(t, []byte{11, 12, 13, 14, 15, 16, 17, 18}, sink.out.samples[1].data[8:])
}

func TestIndexerReadOneFrameCacheHitSplicesBytes(t *testing.T) {
	data := []byte("ABCDEF")
	in := extractor.NewFileInput(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, in.SkipFully(4)) // simulate the stream cursor sitting ahead of frame.Pos

	out := &idxTestOutput{}
	idx := &Indexer{
		state: StateReadFrames,
		out:   out,
		info:  Info{TotalFrames: 1},
		table: FrameTable{Frames: []Frame{{Pos: 0, Size: 6, Blocks: 10, Skip: 0}}},
		cachedPosition: 0,
		cachedBytes:    [4]byte{'A', 'B', 'C', 'D'},
		haveCached:     true,
	}

	result, err := idx.readOneFrame(in)
	require.NoError(t, err)
	require.Equal(t, extractor.ResultEndOfInput, result)

	require.Len(t, out.samples, 1)
	require.Equal(t, []byte("ABCDEF"), out.samples[0].data[8:])
}

func TestIndexerReadOneFrameUnexpectedOffsetRequestsSeek(t *testing.T) {
	data := []byte("ABCDEF")
	in := extractor.NewFileInput(bytes.NewReader(data), int64(len(data)))

	out := &idxTestOutput{}
	idx := &Indexer{
		state: StateReadFrames,
		out:   out,
		info:  Info{TotalFrames: 1},
		table: FrameTable{Frames: []Frame{{Pos: 50, Size: 4}}},
	}

	result, err := idx.readOneFrame(in)
	require.NoError(t, err)
	require.Equal(t, extractor.ResultSeek, result)
	require.Empty(t, out.samples)
}

func TestIndexerSeekToZeroResetsToHeaderState(t *testing.T) {
	idx := &Indexer{state: StateReadFrames, currentFrame: 5}
	idx.Seek(0, 0)
	require.Equal(t, StateReadHeader, idx.state)
}

func TestIndexerSeekNonZeroResolvesFrameViaSeekMap(t *testing.T) {
	idx := &Indexer{
		state: StateReadFrames,
		info:  Info{SampleRate: 1000, TotalSamples: 4000},
		table: FrameTable{FrameSamplesAddUp: []int64{0, 1000, 2000, 3000}},
	}
	idx.Seek(999, 2_200_000)
	require.Equal(t, 2, idx.currentFrame)
}
