package gcset

import (
	"encoding/binary"

	gcserrors "github.com/gcset/gcset/errors"
)

const (
	// magic identifies GCS version 1 files ("GCS1" in ASCII).
	magic = "GCS1"

	// headerSize is the exact size of the serialized header.
	headerSize = 64

	// indexEntrySize is the size of one anchor on disk:
	// (anchor_value uint64, anchor_bit_offset uint64), little-endian.
	indexEntrySize = 16

	// maxGranularityLog2 bounds the anchor stride so 1<<log2 stays well
	// inside uint64 arithmetic.
	maxGranularityLog2 = 62
)

// header is the 64-byte file header.
//
// Layout (all multi-byte integers little-endian):
//
//	Offset  Size  Field
//	0       4     Magic              "GCS1" (ASCII)
//	4       1     HashID             (0=SHA1-trunc64, 1=SipHash-2-4, ...)
//	5       1     GranularityLog2    (e.g. 10 for an anchor stride of 1024)
//	6       2     Reserved           (zero)
//	8       8     NumItems           (uint64, values actually encoded)
//	16      8     P                  (uint64, inverse false-positive rate)
//	24      8     N                  (uint64, bucket universe)
//	32      8     PayloadBitLen      (uint64, data bits before padding)
//	40      8     IndexEntryCount    (uint64)
//	48      8     IndexOffset        (uint64, byte offset from file start)
//	56      8     PayloadOffset      (uint64, byte offset from file start)
//
// The payload follows at PayloadOffset (64 for files written by this
// package), zero-padded to a byte boundary; the anchor table follows at
// IndexOffset. The implicit anchor (0, 0) is never written.
type header struct {
	HashID          HashID
	GranularityLog2 uint8
	NumItems        uint64
	P               uint64
	N               uint64
	PayloadBitLen   uint64
	IndexEntryCount uint64
	IndexOffset     uint64
	PayloadOffset   uint64
}

// encodeTo serializes the header into a 64-byte buffer.
func (h *header) encodeTo(buf []byte) {
	copy(buf[0:4], magic)
	buf[4] = byte(h.HashID)
	buf[5] = h.GranularityLog2
	buf[6], buf[7] = 0, 0
	binary.LittleEndian.PutUint64(buf[8:16], h.NumItems)
	binary.LittleEndian.PutUint64(buf[16:24], h.P)
	binary.LittleEndian.PutUint64(buf[24:32], h.N)
	binary.LittleEndian.PutUint64(buf[32:40], h.PayloadBitLen)
	binary.LittleEndian.PutUint64(buf[40:48], h.IndexEntryCount)
	binary.LittleEndian.PutUint64(buf[48:56], h.IndexOffset)
	binary.LittleEndian.PutUint64(buf[56:64], h.PayloadOffset)
}

// decodeHeader parses a 64-byte header and performs the validation that
// does not require knowing the file size.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, gcserrors.ErrTruncated
	}
	if string(buf[0:4]) != magic {
		return nil, gcserrors.ErrBadMagic
	}

	h := &header{
		HashID:          HashID(buf[4]),
		GranularityLog2: buf[5],
		NumItems:        binary.LittleEndian.Uint64(buf[8:16]),
		P:               binary.LittleEndian.Uint64(buf[16:24]),
		N:               binary.LittleEndian.Uint64(buf[24:32]),
		PayloadBitLen:   binary.LittleEndian.Uint64(buf[32:40]),
		IndexEntryCount: binary.LittleEndian.Uint64(buf[40:48]),
		IndexOffset:     binary.LittleEndian.Uint64(buf[48:56]),
		PayloadOffset:   binary.LittleEndian.Uint64(buf[56:64]),
	}

	if !h.HashID.valid() {
		return nil, gcserrors.ErrUnsupportedHash
	}
	if buf[6] != 0 || buf[7] != 0 {
		return nil, gcserrors.ErrInconsistentIndex
	}
	if h.P < 2 || h.NumItems == 0 || h.GranularityLog2 > maxGranularityLog2 {
		return nil, gcserrors.ErrInconsistentIndex
	}
	if h.PayloadOffset < headerSize {
		return nil, gcserrors.ErrInconsistentIndex
	}

	return h, nil
}

// anchor is one entry of the sparse positional index: the bucket value of
// the k*granularity-th encoded gap (1-based) and the payload bit position
// immediately after that code. Seeking a reader to bitOffset and seeding
// the running total with value resumes the decode at the following bucket.
type anchor struct {
	value     uint64
	bitOffset uint64
}

// encodeAnchorTo serializes an anchor into a 16-byte buffer.
func encodeAnchorTo(a anchor, buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], a.value)
	binary.LittleEndian.PutUint64(buf[8:16], a.bitOffset)
}

// decodeAnchor parses a 16-byte anchor entry.
func decodeAnchor(buf []byte) anchor {
	return anchor{
		value:     binary.LittleEndian.Uint64(buf[0:8]),
		bitOffset: binary.LittleEndian.Uint64(buf[8:16]),
	}
}

// granularity returns the anchor stride in codes.
func (h *header) granularity() uint64 {
	return 1 << h.GranularityLog2
}

// payloadByteLen returns the payload length in bytes, padding included.
func (h *header) payloadByteLen() uint64 {
	return (h.PayloadBitLen + 7) / 8
}
