package gcset

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"

	gcserrors "github.com/gcset/gcset/errors"
	"github.com/gcset/gcset/internal/bits"
	"github.com/gcset/gcset/internal/rice"
)

// Set is a read-only Golomb compressed set opened for querying.
//
// Thread Safety:
// - Contains, Verify, and the accessors are safe for concurrent use
// - Close is NOT safe to call concurrently with queries
// - Close must only be called after all queries have completed
// - After Close returns, no methods may be called on the Set
type Set struct {
	// Memory map (no file handle needed after mmap)
	mmap mmap.MMap
	data []byte

	// Parsed header
	header *header

	// Payload view and anchor table loaded at open time
	payload []byte
	anchors []anchor

	// Hash resolved from the header's identity
	hashFn func([]byte) uint64

	closed atomic.Bool // Atomic for lock-free close check
}

// Stats holds set statistics.
type Stats struct {
	NumItems    uint64
	P           uint64
	N           uint64
	Hash        HashID
	Granularity uint64
	BitsPerItem float64
	PayloadSize int64
	IndexSize   int64
	FileSize    int64
}

// Open opens a set file for querying. It opens the file, memory-maps it,
// and closes the file descriptor.
func Open(path string) (*Set, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open set file: %w", err)
	}
	defer file.Close()
	return OpenFile(file)
}

// OpenFile opens a set by memory-mapping the given file. The caller is
// responsible for closing f. Per POSIX mmap(2), f may be closed
// immediately after OpenFile returns.
func OpenFile(f *os.File) (*Set, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat set file: %w", err)
	}
	if stat.Size() < headerSize {
		return nil, gcserrors.ErrTruncated
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap set file: %w", err)
	}

	s := &Set{
		mmap: mm,
		data: []byte(mm),
	}
	if err := s.initFromData(); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, nil
}

// OpenBytes creates a Set from an in-memory byte slice. No file is opened
// or memory-mapped; Close is a no-op. The caller must ensure data is not
// modified while the Set is in use.
func OpenBytes(data []byte) (*Set, error) {
	if len(data) < headerSize {
		return nil, gcserrors.ErrTruncated
	}
	s := &Set{
		data: data,
	}
	if err := s.initFromData(); err != nil {
		return nil, err
	}
	return s, nil
}

// initFromData parses and validates header and anchor table from s.data.
// Structural index checks (bounds, monotonicity) run here; the per-anchor
// decode check is deferred to Verify so open stays O(anchors).
func (s *Set) initFromData() error {
	fileSize := uint64(len(s.data))

	hdr, err := decodeHeader(s.data[:headerSize])
	if err != nil {
		return err
	}
	s.header = hdr

	s.hashFn, err = hashFunc(hdr.HashID)
	if err != nil {
		return err
	}

	// Section bounds. The payload may be followed directly by the index;
	// both must lie inside the file. Comparisons are phrased so hostile
	// headers cannot wrap the arithmetic.
	payloadBytes := hdr.payloadByteLen()
	if hdr.PayloadOffset > fileSize || payloadBytes > fileSize-hdr.PayloadOffset {
		return gcserrors.ErrTruncated
	}
	if hdr.PayloadBitLen > payloadBytes*8 {
		return gcserrors.ErrInconsistentIndex
	}
	if hdr.IndexOffset > fileSize {
		return gcserrors.ErrTruncated
	}
	if hdr.IndexOffset < hdr.PayloadOffset+payloadBytes {
		return gcserrors.ErrInconsistentIndex
	}
	if hdr.IndexEntryCount > (fileSize-hdr.IndexOffset)/indexEntrySize {
		return gcserrors.ErrTruncated
	}

	// One anchor is recorded per granularity codes; a mismatched count
	// means the index does not describe this payload.
	if hdr.IndexEntryCount != hdr.NumItems>>hdr.GranularityLog2 {
		return gcserrors.ErrInconsistentIndex
	}

	s.payload = s.data[hdr.PayloadOffset : hdr.PayloadOffset+payloadBytes]

	// Load the anchor table, checking order as we go: values are
	// non-decreasing (equal only when duplicates were kept), bit offsets
	// strictly increasing, both bounded by the header.
	s.anchors = make([]anchor, hdr.IndexEntryCount)
	prev := anchor{}
	for i := range s.anchors {
		off := hdr.IndexOffset + uint64(i)*indexEntrySize
		a := decodeAnchor(s.data[off : off+indexEntrySize])
		if a.value >= hdr.N || a.bitOffset > hdr.PayloadBitLen {
			return gcserrors.ErrInconsistentIndex
		}
		if i > 0 && (a.value < prev.value || a.bitOffset <= prev.bitOffset) {
			return gcserrors.ErrInconsistentIndex
		}
		s.anchors[i] = a
		prev = a
	}

	// Query access into the payload is random; tell the kernel. The whole
	// mapping is advised because madvise wants a page-aligned base.
	if s.mmap != nil {
		madviseRandom(s.data)
	}

	return nil
}

// Close closes the set and releases the mapping.
func (s *Set) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	if s.mmap != nil {
		return s.mmap.Unmap()
	}
	return nil
}

// Contains reports whether item might be a member of the set. There are
// no false negatives; a true result for a non-member occurs with
// probability about 1/p. Contains never fails: any byte string is a legal
// probe, and a closed set answers false.
func (s *Set) Contains(item []byte) bool {
	if s.closed.Load() {
		return false
	}
	return s.containsBucket(s.hashFn(item) % s.header.N)
}

// containsBucket answers membership for an already-reduced bucket value.
func (s *Set) containsBucket(target uint64) bool {
	// Largest anchor at or below the target; anchors hold real member
	// values, so an exact hit is already an answer.
	i := sort.Search(len(s.anchors), func(i int) bool {
		return s.anchors[i].value > target
	})
	var start anchor // implicit (0, 0)
	if i > 0 {
		start = s.anchors[i-1]
		if start.value == target {
			return true
		}
	}

	r := bits.NewReader(s.payload, s.header.PayloadBitLen)
	r.SeekBits(start.bitOffset)
	dec := rice.NewDecoder(r, s.header.P)

	running := start.value
	for {
		gap, err := dec.Decode()
		if err != nil {
			return false // ran off the end of the payload: absent
		}
		running += gap
		if running >= target {
			return running == target
		}
	}
}

// NumItems returns the number of values encoded in the set.
func (s *Set) NumItems() uint64 {
	return s.header.NumItems
}

// P returns the inverse false-positive rate the set was built with.
func (s *Set) P() uint64 {
	return s.header.P
}

// N returns the bucket universe size.
func (s *Set) N() uint64 {
	return s.header.N
}

// Hash returns the hash identity recorded in the header.
func (s *Set) Hash() HashID {
	return s.header.HashID
}

// IndexGranularity returns the anchor stride in encoded gaps.
func (s *Set) IndexGranularity() uint64 {
	return s.header.granularity()
}

// GetStats returns statistics for a set file.
func GetStats(path string) (*Stats, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}

	return s.Stats(), s.Close()
}

// Stats returns statistics for the set.
func (s *Set) Stats() *Stats {
	totalSize := int64(len(s.data))

	bitsPerItem := float64(0)
	if s.header.NumItems > 0 {
		bitsPerItem = float64(totalSize*8) / float64(s.header.NumItems)
	}

	return &Stats{
		NumItems:    s.header.NumItems,
		P:           s.header.P,
		N:           s.header.N,
		Hash:        s.header.HashID,
		Granularity: s.header.granularity(),
		BitsPerItem: bitsPerItem,
		PayloadSize: int64(s.header.payloadByteLen()),
		IndexSize:   int64(s.header.IndexEntryCount * indexEntrySize),
		FileSize:    totalSize,
	}
}

// Verify replays the entire payload and checks it against the header and
// every anchor: the decode must visit exactly NumItems non-decreasing
// values inside [0, N), consume exactly PayloadBitLen bits, and agree
// with each anchor's value and bit position. Queries on a set that fails
// Verify are undefined.
func (s *Set) Verify() error {
	if s.closed.Load() {
		return gcserrors.ErrSetClosed
	}

	hdr := s.header
	r := bits.NewReader(s.payload, hdr.PayloadBitLen)
	dec := rice.NewDecoder(r, hdr.P)
	granularity := hdr.granularity()

	running := uint64(0)
	for i := uint64(1); i <= hdr.NumItems; i++ {
		gap, err := dec.Decode()
		if err != nil {
			return err
		}
		running += gap
		if running >= hdr.N {
			return gcserrors.ErrInconsistentIndex
		}
		if i&(granularity-1) == 0 {
			a := s.anchors[(i>>hdr.GranularityLog2)-1]
			if a.value != running || a.bitOffset != r.Pos() {
				return gcserrors.ErrInconsistentIndex
			}
		}
	}

	// The payload must contain nothing but the NumItems codes.
	if r.Pos() != hdr.PayloadBitLen {
		return gcserrors.ErrInconsistentIndex
	}

	return nil
}
