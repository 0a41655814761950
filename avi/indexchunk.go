package avi

import (
	"encoding/binary"
	"fmt"
)

// parseIndexChunkBody dispatches an indx or ix## chunk body (already read
// into memory) to the super-index or standard-index parser based on
// longsPerEntry, the same discriminator the wire format uses.
func parseIndexChunkBody(body []byte, chunkOffset int64) (super []SuperIndexEntry, std *StandardIndexSegment, err error) {
	if len(body) < 8 {
		return nil, nil, malformedErr("parse index chunk", fmt.Errorf("index chunk too short: %d bytes", len(body)))
	}
	longsPerEntry := binary.LittleEndian.Uint16(body[0:2])
	switch longsPerEntry {
	case 4:
		entries, err := parseSuperIndexEntries(body)
		return entries, nil, err
	case 2:
		seg, err := parseStandardIndexEntries(body, chunkOffset)
		return nil, seg, err
	default:
		return nil, nil, malformedErr("parse index chunk", fmt.Errorf("unsupported longsPerEntry=%d", longsPerEntry))
	}
}

// parseSuperIndexEntries parses an indx chunk body: 24-byte header then
// entriesInUse 16-byte rows of {offset u64, size u32, duration u32}.
func parseSuperIndexEntries(body []byte) ([]SuperIndexEntry, error) {
	if len(body) < 24 {
		return nil, malformedErr("parse super index", fmt.Errorf("short indx header"))
	}
	entriesInUse := binary.LittleEndian.Uint32(body[4:8])
	out := make([]SuperIndexEntry, 0, entriesInUse)
	off := 24
	for i := uint32(0); i < entriesInUse; i++ {
		if off+16 > len(body) {
			break
		}
		offset := binary.LittleEndian.Uint64(body[off : off+8])
		size := binary.LittleEndian.Uint32(body[off+8 : off+12])
		duration := binary.LittleEndian.Uint32(body[off+12 : off+16])
		out = append(out, SuperIndexEntry{
			IxChunkOffset:   int64(offset),
			IxChunkByteSize: size,
			DurationTicks:   duration,
		})
		off += 16
	}
	return out, nil
}

// parseStandardIndexEntries parses an ix## chunk body: 24-byte header
// (whose 8-byte baseOffset + 4-byte reserved follow the common first 12
// bytes), then entriesInUse 8-byte rows of {relativeOffset u32, size u32}.
// Bit 31 of size set means "not a keyframe". chunkOffset is only used for
// the keyframe global offset math when the entries are relative to a
// reported baseOffset of zero (non-standard muxers).
func parseStandardIndexEntries(body []byte, chunkOffset int64) (*StandardIndexSegment, error) {
	if len(body) < 24 {
		return nil, malformedErr("parse standard index", fmt.Errorf("short ix## header"))
	}
	entriesInUse := binary.LittleEndian.Uint32(body[4:8])
	baseOffset := int64(binary.LittleEndian.Uint64(body[12:20]))
	if baseOffset == 0 {
		baseOffset = chunkOffset
	}
	seg := &StandardIndexSegment{
		BaseOffset:      baseOffset,
		KeyFrameOffsets: make([]int64, 0, entriesInUse),
		KeyFrameSizes:   make([]uint32, 0, entriesInUse),
		TotalEntryCount: int64(entriesInUse),
	}
	off := 24
	ordinal := int64(0)
	for i := uint32(0); i < entriesInUse; i++ {
		if off+8 > len(body) {
			break
		}
		relOffset := binary.LittleEndian.Uint32(body[off : off+4])
		size := binary.LittleEndian.Uint32(body[off+4 : off+8])
		off += 8
		isKey := size&ixEntryNonKeyFrameBit == 0
		if isKey {
			// The standard index entry points at the chunk's payload;
			// the chunk header itself begins 8 bytes earlier.
			seg.KeyFrameOffsets = append(seg.KeyFrameOffsets, baseOffset+int64(relOffset)-8)
			seg.KeyFrameSizes = append(seg.KeyFrameSizes, size&^ixEntryNonKeyFrameBit)
			seg.KeyFrameGlobalOrdinals = append(seg.KeyFrameGlobalOrdinals, ordinal)
		}
		ordinal++
	}
	return seg, nil
}
