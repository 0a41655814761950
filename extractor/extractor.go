// Package extractor defines the collaborator contracts that an AVI or APE
// demuxer is driven through: a positionable byte Input, a sink that tracks
// are published and samples are pushed to, and the seek-map types used to
// answer "where in the stream is timestamp t".
//
// Nothing in this package knows about RIFF, OpenDML or Monkey's Audio; it is
// the same role joy4's av package plays for its format/* implementations.
package extractor

import "io"

// Result is returned by a single drive of an extractor's read loop.
type Result int

const (
	// ResultContinue means the caller should invoke read again immediately.
	ResultContinue Result = iota
	// ResultSeek means the caller must reposition Input before the next read.
	ResultSeek
	// ResultEndOfInput means there is nothing left to extract.
	ResultEndOfInput
)

// Kind classifies why an operation failed, per the propagation policy:
// Eof and Malformed escape to the caller; Unsupported and Recoverable never
// do — they are logged and the affected unit of work is skipped.
type Kind int

const (
	KindEof Kind = iota
	KindMalformed
	KindUnsupported
	KindRecoverable
)

func (k Kind) String() string {
	switch k {
	case KindEof:
		return "eof"
	case KindMalformed:
		return "malformed"
	case KindUnsupported:
		return "unsupported"
	case KindRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

// Error carries a Kind alongside the usual op/cause pair so callers can
// errors.As into it and branch without string matching.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + ": " + e.Op
	}
	return e.Kind.String() + ": " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsRecoverable reports whether err is Unsupported or Recoverable — the two
// kinds the demuxer must never let escape a read call.
func IsRecoverable(err error) bool {
	var e *Error
	if as(err, &e) {
		return e.Kind == KindUnsupported || e.Kind == KindRecoverable
	}
	return false
}

// as is a narrow local errors.As to avoid importing errors in this tiny file
// twice; kept trivial on purpose.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Input is the physical byte source the demuxer reads from: positionable,
// peekable, and independent of any particular transport.
type Input interface {
	io.Reader

	// Position returns the current read position.
	Position() int64
	// Length returns the total length, or -1 if unknown.
	Length() int64

	// ReadFully reads exactly len(dst) bytes, advancing the read position.
	// Fails with a KindEof Error on shortfall.
	ReadFully(dst []byte) error
	// SkipFully advances the read position by n bytes without returning them.
	SkipFully(n int64) error

	// PeekFully reads len(dst) bytes from the independent peek cursor without
	// moving the read position.
	PeekFully(dst []byte) error
	// AdvancePeekPosition moves the peek cursor forward by n bytes.
	AdvancePeekPosition(n int64) error
	// ResetPeekPosition resets the peek cursor back to the read position.
	ResetPeekPosition()

	// SeekTo repositions the read (and peek) cursor, used to service a
	// ResultSeek answer from an extractor.
	SeekTo(position int64) error
}

// SeekPoint is one candidate (time, byte offset) pair.
type SeekPoint struct {
	TimeUs     int64
	ByteOffset int64
}

// SeekPoints is the answer to a seek request: always at least First; Second
// is present when the target falls strictly between two known points.
type SeekPoints struct {
	First  SeekPoint
	Second SeekPoint
}

var StartSeekPoint = SeekPoint{TimeUs: 0, ByteOffset: 0}

// SeekMap is published once to the sink (possibly more than once, if the
// demuxer later upgrades from Unseekable to Seekable).
type SeekMap interface {
	IsSeekable() bool
	DurationUs() int64
	GetSeekPoints(timeUs int64) SeekPoints
}

// UnseekableSeekMap answers every query with the start of the stream.
type UnseekableSeekMap struct {
	Duration int64
}

func (u UnseekableSeekMap) IsSeekable() bool    { return false }
func (u UnseekableSeekMap) DurationUs() int64   { return u.Duration }
func (u UnseekableSeekMap) GetSeekPoints(int64) SeekPoints {
	return SeekPoints{First: StartSeekPoint, Second: StartSeekPoint}
}

// Format describes one track's codec and container-level metadata.
type Format struct {
	ID               string
	Label            string
	MimeType         string
	Codecs           string
	SampleRate       int
	ChannelCount     int
	PcmEncoding      int
	AverageBitrate   int
	MaxInputSize     int
	FrameRate        float64
	CodecInitData    [][]byte
}

// SampleFlags mirror the handful of bits a TrackOutput cares about.
type SampleFlags int

const (
	SampleFlagKeyFrame SampleFlags = 1 << iota
)

// TrackOutput receives one track's formats and samples.
type TrackOutput interface {
	Format(fmt Format)
	// SampleData consumes the bytes of data and returns the number of bytes
	// actually consumed.
	SampleData(data []byte) (int, error)
	// SampleDataFromInput streams length bytes directly from input into the
	// sink, for callers that do not want to buffer the whole sample.
	SampleDataFromInput(input Input, length int, allowEndOfInput bool) (int, error)
	SampleMetadata(timeUs int64, flags SampleFlags, size int, offset int)
}

// TrackSink is the overall downstream consumer: tracks register themselves,
// the demuxer signals it knows the full set, and eventually a seek-map.
type TrackSink interface {
	Track(id int, trackType string) TrackOutput
	EndTracks()
	SeekMap(seekMap SeekMap)
}

// DiscardTrackOutput implements TrackOutput by dropping everything; it is
// the default sink used by library callers that only want index/seek
// behaviour without a real consumer wired up.
type DiscardTrackOutput struct{}

func (DiscardTrackOutput) Format(Format)                                      {}
func (DiscardTrackOutput) SampleData(data []byte) (int, error)                { return len(data), nil }
func (DiscardTrackOutput) SampleDataFromInput(in Input, n int, _ bool) (int, error) {
	return n, in.SkipFully(int64(n))
}
func (DiscardTrackOutput) SampleMetadata(int64, SampleFlags, int, int) {}

// DiscardTrackSink pairs with DiscardTrackOutput.
type DiscardTrackSink struct{}

func (DiscardTrackSink) Track(int, string) TrackOutput { return DiscardTrackOutput{} }
func (DiscardTrackSink) EndTracks()                    {}
func (DiscardTrackSink) SeekMap(SeekMap)                {}
