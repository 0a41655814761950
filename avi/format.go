package avi


// Wire-format constants: RIFF/AVI signatures, LIST types, chunk fourCCs.
const (
	RIFFSignature = "RIFF"
	AVISignature  = "AVI "
	AVIXSignature = "AVIX"
	LISTSignature = "LIST"

	HDRLList = "hdrl"
	STRLList = "strl"
	MOVIList = "movi"
	RECList  = "rec "

	AVIHChunk = "avih"
	STRHChunk = "strh"
	STRFChunk = "strf"
	STRDChunk = "strd"
	STRNChunk = "strn"
	INDXChunk = "indx"
	IDX1Chunk = "idx1"
	JUNKChunk = "JUNK"

	StreamTypeVideoFourCC = "vids"
	StreamTypeAudioFourCC = "auds"
	StreamTypeTextFourCC  = "txts"

	// AVIIF_KEYFRAME: bit 4 of an idx1 entry's flags field.
	AVIIFKeyFrame = 0x00000010
	// AVIIF_LIST: bit 0, marks an idx1 entry that addresses a LIST rec.
	AVIIFList = 0x00000001

	// Bit 31 of an ix## entry's size field means "not a keyframe" — the
	// inverse convention of idx1.
	ixEntryNonKeyFrameBit = 0x80000000
)

// StreamType is the track kind a demuxed stream carries.
type StreamType string

const (
	StreamTypeVideo StreamType = "video"
	StreamTypeAudio StreamType = "audio"
)

// RIFFHeader is the 12-byte file preamble.
type RIFFHeader struct {
	Signature [4]byte
	FileSize  uint32
	Type      [4]byte
}

// ChunkHeader is the 8-byte header every RIFF chunk begins with.
type ChunkHeader struct {
	ID   [4]byte
	Size uint32
}

// AVIMainHeader is the avih chunk body.
type AVIMainHeader struct {
	MicroSecPerFrame    uint32
	MaxBytesPerSec      uint32
	PaddingGranularity  uint32
	Flags               uint32
	TotalFrames         uint32
	InitialFrames       uint32
	Streams             uint32
	SuggestedBufferSize uint32
	Width               uint32
	Height              uint32
	Reserved            [4]uint32
}

// AVIStreamHeader is the strh chunk body.
type AVIStreamHeader struct {
	Type                [4]byte
	Handler             [4]byte
	Flags               uint32
	Priority            uint16
	Language            uint16
	InitialFrames       uint32
	Scale               uint32
	Rate                uint32
	Start               uint32
	Length              uint32
	SuggestedBufferSize uint32
	Quality             uint32
	SampleSize          uint32
	Frame               struct {
		Left   uint16
		Top    uint16
		Right  uint16
		Bottom uint16
	}
}

// BitmapInfoHeader is the video strf chunk body.
type BitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   [4]byte
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

// WaveFormatEx is the audio strf chunk body.
type WaveFormatEx struct {
	FormatTag      uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	Size           uint16
}

// Idx1WireEntry is one 16-byte legacy index entry.
type Idx1WireEntry struct {
	ChunkID [4]byte
	Flags   uint32
	Offset  uint32
	Size    uint32
}

// SuperIndexWireHeader precedes the entriesInUse SuperIndexWireEntry rows in
// an indx chunk (longsPerEntry must be 4).
type SuperIndexWireHeader struct {
	LongsPerEntry uint16
	SubType       uint8
	IndexType     uint8
	EntriesInUse  uint32
	ChunkID       [4]byte
	Reserved      [3]uint32
}

// SuperIndexWireEntry is one row of an indx super-index.
type SuperIndexWireEntry struct {
	Offset       uint64
	Size         uint32
	DurationTick uint32
}

// StandardIndexWireHeader precedes the entriesInUse StandardIndexWireEntry
// rows in an ix## chunk (longsPerEntry must be 2).
type StandardIndexWireHeader struct {
	LongsPerEntry uint16
	SubType       uint8
	IndexType     uint8
	EntriesInUse  uint32
	ChunkID       [4]byte
	BaseOffset    uint64
	Reserved      uint32
}

// StandardIndexWireEntry is one row of an ix## standard index.
type StandardIndexWireEntry struct {
	RelativeOffset uint32
	Size           uint32
}

// MakeChunkID builds the fourCC "NNxy" for the given stream index and
// two-character suffix (dc, db, wb, ix).
func MakeChunkID(streamIndex int, twoCC string) [4]byte {
	var id [4]byte
	id[0] = byte('0' + (streamIndex/10)%10)
	id[1] = byte('0' + streamIndex%10)
	id[2] = twoCC[0]
	id[3] = twoCC[1]
	return id
}

func ChunkIDToString(id [4]byte) string { return string(id[:]) }

func StringToChunkID(s string) [4]byte {
	var id [4]byte
	copy(id[:], s)
	return id
}

// AlignSize rounds a chunk size up to the next even (dword-pad) boundary.
func AlignSize(size uint32) uint32 { return (size + 1) &^ 1 }

func IsValidRIFFSignature(sig [4]byte) bool { return string(sig[:]) == RIFFSignature }
func IsValidAVISignature(sig [4]byte) bool  { return string(sig[:]) == AVISignature }
func IsVideoStream(t [4]byte) bool          { return string(t[:]) == StreamTypeVideoFourCC }
func IsAudioStream(t [4]byte) bool          { return string(t[:]) == StreamTypeAudioFourCC }

// streamIndexFromChunkID extracts the two leading decimal digits of a movi
// chunk fourCC ("03dc" -> 3), or -1 if they are not digits.
func streamIndexFromChunkID(id [4]byte) int {
	if id[0] < '0' || id[0] > '9' || id[1] < '0' || id[1] > '9' {
		return -1
	}
	return int(id[0]-'0')*10 + int(id[1]-'0')
}

func chunkSuffix(id [4]byte) string { return string(id[2:4]) }
