// Package ape implements a minimal Monkey's Audio (APE) container reader:
// header parsing across both wire dialects, seek-table-derived frame table
// reconstruction, and a sample-accurate SeekMap, mirroring the role avi
// plays for RIFF/OpenDML but over APE's much smaller surface.
package ape

import (
	"encoding/binary"
	"fmt"

	"github.com/charlescerisier/avixer/extractor"
)

// Signature is the 4-byte magic every APE file begins with.
const Signature = "MAC "

// Format flag bits from the legacy (<3980) header dialect.
const (
	FormatFlag8Bit            = 1
	FormatFlagCRC             = 2
	FormatFlagHasPeakLevel    = 4
	FormatFlag24Bit           = 8
	FormatFlagHasSeekElements = 16
	FormatFlagCreateWavHeader = 32
)

const (
	descriptorLength  = 52
	headerV3980Length = 24
	headerV0000Length = 32
)

// Info holds every header field the frame-table builder and the SeekMap need,
// regardless of which wire dialect it was parsed from.
type Info struct {
	FileVersion      int
	CompressionType  int
	FormatFlags      int
	TotalFrames      int64
	FinalFrameBlocks int64
	BlocksPerFrame   int64
	Channels         int
	SampleRate       int64
	BitsPerSample    int

	DescriptorLength int64
	HeaderLength     int64
	SeekTableLength  int64
	WavHeaderLength  int64
	WavTailLength    int64

	TotalSamples int64
	DurationUs   int64
}

// CheckFileType peeks the first 4 bytes without moving the read cursor.
func CheckFileType(in extractor.Input) (bool, error) {
	in.ResetPeekPosition()
	sig := make([]byte, 4)
	if err := in.PeekFully(sig); err != nil {
		return false, nil
	}
	return string(sig) == Signature, nil
}

// ReadInfo parses the header at the start of in (position 0), dispatching on
// the peeked version field to the v3980+ or legacy dialect, the same switch
// ApeHeaderReader.read performs.
func ReadInfo(in extractor.Input) (Info, error) {
	if in.Position() != 0 {
		return Info{}, malformedErr("read ape header", fmt.Errorf("must be called at position 0"))
	}
	ok, err := CheckFileType(in)
	if err != nil {
		return Info{}, err
	}
	if !ok {
		return Info{}, malformedErr("read ape header", fmt.Errorf("missing %q signature", Signature))
	}

	versionBuf := make([]byte, 2)
	if err := in.PeekFully(versionBuf); err != nil {
		return Info{}, err
	}
	version := int(binary.LittleEndian.Uint16(versionBuf))
	in.ResetPeekPosition()

	var info Info
	if version >= 3980 {
		info, err = readV3980(in)
	} else {
		info, err = readV0000(in)
	}
	if err != nil {
		return Info{}, err
	}

	if info.TotalFrames == 0 {
		info.TotalSamples = 0
	} else {
		info.TotalSamples = (info.TotalFrames-1)*info.BlocksPerFrame + info.FinalFrameBlocks
	}
	if info.SampleRate > 0 {
		info.DurationUs = info.TotalSamples * 1000000 / info.SampleRate
	}
	return info, nil
}

func readV3980(in extractor.Input) (Info, error) {
	desc := make([]byte, descriptorLength)
	if err := in.PeekFully(desc); err != nil {
		return Info{}, err
	}
	fileVersion := int(binary.LittleEndian.Uint16(desc[4:6]))
	descLen := int64(binary.LittleEndian.Uint32(desc[8:12]))
	headerLen := int64(binary.LittleEndian.Uint32(desc[12:16]))
	seekTableLen := int64(binary.LittleEndian.Uint32(desc[16:20]))
	wavHeaderLen := int64(binary.LittleEndian.Uint32(desc[20:24]))
	wavTailLen := int64(binary.LittleEndian.Uint32(desc[32:36]))

	if descLen > descriptorLength {
		if err := in.AdvancePeekPosition(descLen - descriptorLength); err != nil {
			return Info{}, err
		}
	}

	hdr := make([]byte, headerV3980Length)
	if err := in.PeekFully(hdr); err != nil {
		return Info{}, err
	}
	if headerLen > headerV3980Length {
		if err := in.AdvancePeekPosition(headerLen - headerV3980Length); err != nil {
			return Info{}, err
		}
	}

	info := Info{
		FileVersion:      fileVersion,
		DescriptorLength: descLen,
		HeaderLength:     headerLen,
		SeekTableLength:  seekTableLen,
		WavHeaderLength:  wavHeaderLen,
		WavTailLength:    wavTailLen,
		CompressionType:  int(binary.LittleEndian.Uint16(hdr[0:2])),
		FormatFlags:      int(binary.LittleEndian.Uint16(hdr[2:4])),
		BlocksPerFrame:   int64(binary.LittleEndian.Uint32(hdr[4:8])),
		FinalFrameBlocks: int64(binary.LittleEndian.Uint32(hdr[8:12])),
		TotalFrames:      int64(binary.LittleEndian.Uint32(hdr[12:16])),
		BitsPerSample:    int(binary.LittleEndian.Uint16(hdr[16:18])),
		Channels:         int(binary.LittleEndian.Uint16(hdr[18:20])),
		SampleRate:       int64(binary.LittleEndian.Uint32(hdr[20:24])),
	}
	return info, nil
}

func readV0000(in extractor.Input) (Info, error) {
	hdr := make([]byte, headerV0000Length)
	if err := in.PeekFully(hdr); err != nil {
		return Info{}, err
	}
	fileVersion := int(binary.LittleEndian.Uint16(hdr[4:6]))
	compressionType := int(binary.LittleEndian.Uint16(hdr[6:8]))
	formatFlags := int(binary.LittleEndian.Uint16(hdr[8:10]))
	channels := int(binary.LittleEndian.Uint16(hdr[10:12]))
	sampleRate := int64(binary.LittleEndian.Uint32(hdr[12:16]))
	wavHeaderLen := int64(binary.LittleEndian.Uint32(hdr[16:20]))
	wavTailLen := int64(binary.LittleEndian.Uint32(hdr[20:24]))
	totalFrames := int64(binary.LittleEndian.Uint32(hdr[24:28]))
	finalFrameBlocks := int64(binary.LittleEndian.Uint32(hdr[28:32]))

	var blocksPerFrame int64
	switch {
	case fileVersion >= 3950:
		blocksPerFrame = 73728 * 4
	case fileVersion >= 3900, fileVersion >= 3800 && compressionType >= 4000:
		blocksPerFrame = 73728
	default:
		blocksPerFrame = 9216
	}

	var bitsPerSample int
	switch {
	case formatFlags&FormatFlag8Bit != 0:
		bitsPerSample = 8
	case formatFlags&FormatFlag24Bit != 0:
		bitsPerSample = 24
	default:
		bitsPerSample = 16
	}

	info := Info{
		FileVersion:      fileVersion,
		CompressionType:  compressionType,
		FormatFlags:      formatFlags,
		Channels:         channels,
		SampleRate:       sampleRate,
		WavHeaderLength:  wavHeaderLen,
		WavTailLength:    wavTailLen,
		TotalFrames:      totalFrames,
		FinalFrameBlocks: finalFrameBlocks,
		BlocksPerFrame:   blocksPerFrame,
		BitsPerSample:    bitsPerSample,
		HeaderLength:     headerV0000Length,
	}

	if formatFlags&FormatFlagHasPeakLevel != 0 {
		if err := in.AdvancePeekPosition(4); err != nil {
			return Info{}, err
		}
		info.HeaderLength += 4
	}

	var seekTableElementCount int64
	if formatFlags&FormatFlagHasSeekElements != 0 {
		countBuf := make([]byte, 4)
		if err := in.PeekFully(countBuf); err != nil {
			return Info{}, err
		}
		seekTableElementCount = int64(binary.LittleEndian.Uint32(countBuf))
		info.HeaderLength += 4
	} else {
		seekTableElementCount = totalFrames
	}
	info.SeekTableLength = seekTableElementCount * 4

	if formatFlags&FormatFlagCreateWavHeader == 0 {
		if err := in.AdvancePeekPosition(info.WavHeaderLength); err != nil {
			return Info{}, err
		}
	}

	return info, nil
}

func malformedErr(op string, err error) error {
	return extractor.NewError(extractor.KindMalformed, op, err)
}
