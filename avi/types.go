package avi

// StreamDescriptor is the immutable-after-hdrl description of one stream,
// built while parsing strl and handed to the sink as a Format plus kept
// around to drive ChunkReader/StreamIndex construction.
type StreamDescriptor struct {
	StreamID             int
	TrackType            StreamType
	CodecMime            string
	Handler              [4]byte
	SampleRate           int
	Channels             int
	BitDepth             int
	Width                int
	Height               int
	FrameRate            float64
	FrameCountFromHeader int64
	DurationUs           int64
	SuggestedBufferSize  uint32
	CodecInit            []byte
	Label                string
}
