// framework_test.go tests the framework infrastructure of the gcset
// package: header and anchor serialization, the hash registry, input
// preprocessing, and the stats accessors. These are functions that don't
// individually warrant separate files but share the same test binary.
package gcset

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	gcserrors "github.com/gcset/gcset/errors"
)

// =============================================================================
// Header tests
// =============================================================================

func TestHeaderRoundTrip(t *testing.T) {
	h := header{
		HashID:          HashXXH3,
		GranularityLog2: 10,
		NumItems:        123456,
		P:               1000,
		N:               123456000,
		PayloadBitLen:   987654321,
		IndexEntryCount: 120,
		IndexOffset:     64 + (987654321+7)/8,
		PayloadOffset:   64,
	}

	var buf [headerSize]byte
	h.encodeTo(buf[:])

	got, err := decodeHeader(buf[:])
	if err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	if diff := cmp.Diff(&h, got); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeHeaderRejectsBadInput(t *testing.T) {
	valid := func() []byte {
		h := header{
			HashID:          HashSipHash24,
			GranularityLog2: 10,
			NumItems:        10,
			P:               16,
			N:               160,
			PayloadBitLen:   70,
			IndexEntryCount: 0,
			IndexOffset:     73,
			PayloadOffset:   64,
		}
		buf := make([]byte, headerSize)
		h.encodeTo(buf)
		return buf
	}

	cases := []struct {
		name    string
		corrupt func(buf []byte)
		want    error
	}{
		{"short buffer", func(buf []byte) {}, nil}, // handled separately below
		{"bad magic", func(buf []byte) { buf[0] = 'X' }, gcserrors.ErrBadMagic},
		{"unknown hash", func(buf []byte) { buf[4] = 0xEE }, gcserrors.ErrUnsupportedHash},
		{"reserved nonzero", func(buf []byte) { buf[6] = 1 }, gcserrors.ErrInconsistentIndex},
		{"granularity too large", func(buf []byte) { buf[5] = 63 }, gcserrors.ErrInconsistentIndex},
		{"p below 2", func(buf []byte) { buf[16] = 1 }, gcserrors.ErrInconsistentIndex},
		{"zero items", func(buf []byte) { copy(buf[8:16], make([]byte, 8)) }, gcserrors.ErrInconsistentIndex},
		{"payload offset inside header", func(buf []byte) { buf[56] = 32 }, gcserrors.ErrInconsistentIndex},
	}

	for _, tc := range cases[1:] {
		t.Run(tc.name, func(t *testing.T) {
			buf := valid()
			tc.corrupt(buf)
			if _, err := decodeHeader(buf); !errors.Is(err, tc.want) {
				t.Errorf("decodeHeader = %v, want %v", err, tc.want)
			}
		})
	}

	t.Run("short buffer", func(t *testing.T) {
		if _, err := decodeHeader(valid()[:headerSize-1]); !errors.Is(err, gcserrors.ErrTruncated) {
			t.Errorf("decodeHeader = %v, want ErrTruncated", err)
		}
	})
}

func TestAnchorRoundTrip(t *testing.T) {
	a := anchor{value: 0xDEADBEEF12345678, bitOffset: 0x1122334455667788}
	var buf [indexEntrySize]byte
	encodeAnchorTo(a, buf[:])
	got := decodeAnchor(buf[:])
	if diff := cmp.Diff(a, got, cmp.AllowUnexported(anchor{})); diff != "" {
		t.Errorf("anchor mismatch (-want +got):\n%s", diff)
	}
}

// =============================================================================
// Hash registry tests
// =============================================================================

func TestHashIDNamesRoundTrip(t *testing.T) {
	for id := HashSHA1Trunc64; id <= HashMurmur3; id++ {
		got, err := ParseHashID(id.String())
		if err != nil {
			t.Errorf("ParseHashID(%q): %v", id.String(), err)
			continue
		}
		if got != id {
			t.Errorf("ParseHashID(%q) = %d, want %d", id.String(), got, id)
		}
	}

	if _, err := ParseHashID("blake3"); !errors.Is(err, gcserrors.ErrUnsupportedHash) {
		t.Errorf("ParseHashID(unknown) = %v, want ErrUnsupportedHash", err)
	}
	if got := HashID(200).String(); got != "unknown" {
		t.Errorf("HashID(200).String() = %q", got)
	}
}

func TestHashFuncsAreDistinctAndDeterministic(t *testing.T) {
	item := []byte("the quick brown fox")
	seen := make(map[uint64]HashID)
	for id := HashSHA1Trunc64; id <= HashMurmur3; id++ {
		fn, err := hashFunc(id)
		if err != nil {
			t.Fatalf("hashFunc(%s): %v", id, err)
		}
		h1, h2 := fn(item), fn(item)
		if h1 != h2 {
			t.Errorf("%s is not deterministic", id)
		}
		if prev, ok := seen[h1]; ok {
			t.Errorf("%s and %s produce the same hash for %q", id, prev, item)
		}
		seen[h1] = id
	}

	if _, err := hashFunc(HashID(99)); !errors.Is(err, gcserrors.ErrUnsupportedHash) {
		t.Errorf("hashFunc(99) = %v, want ErrUnsupportedHash", err)
	}
}

// =============================================================================
// Preprocessing tests
// =============================================================================

func TestPreprocessRaw(t *testing.T) {
	line := []byte("anything at all, including odd lengths and \xff bytes")
	got, err := PreprocessRaw.Apply(line)
	if err != nil {
		t.Fatalf("raw Apply: %v", err)
	}
	if string(got) != string(line) {
		t.Errorf("raw Apply changed the line")
	}
}

func TestPreprocessHex(t *testing.T) {
	got, err := PreprocessHex.Apply([]byte("DeadBeef"))
	if err != nil {
		t.Fatalf("hex Apply: %v", err)
	}
	want := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("hex Apply mismatch (-want +got):\n%s", diff)
	}

	bad := [][]byte{
		[]byte(""),      // empty line
		[]byte("abc"),   // odd length
		[]byte("zz"),    // invalid nibble
		[]byte("12 34"), // embedded space
	}
	for _, line := range bad {
		if _, err := PreprocessHex.Apply(line); !errors.Is(err, gcserrors.ErrBadInputLine) {
			t.Errorf("hex Apply(%q) = %v, want ErrBadInputLine", line, err)
		}
	}
}

func TestParsePreprocessing(t *testing.T) {
	for _, mode := range []Preprocessing{PreprocessRaw, PreprocessHex} {
		got, err := ParsePreprocessing(mode.String())
		if err != nil || got != mode {
			t.Errorf("ParsePreprocessing(%q) = %v, %v", mode.String(), got, err)
		}
	}
	if _, err := ParsePreprocessing("base64"); err == nil {
		t.Error("ParsePreprocessing(unknown) succeeded")
	}
}

// =============================================================================
// Stats and accessors
// =============================================================================

func TestStatsAndAccessors(t *testing.T) {
	items := sequentialItems(1000)
	path := buildSetFile(t, items, 64, WithHash(HashXXHash64), WithIndexGranularity(128))

	set, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer set.Close()

	// Bucket collisions may fold a few of the 1000 items together, but
	// the universe is fixed from the ingested count before reduction.
	if n := set.NumItems(); n < 950 || n > 1000 {
		t.Errorf("NumItems = %d, want close to 1000", n)
	}
	if set.P() != 64 {
		t.Errorf("P = %d, want 64", set.P())
	}
	if set.N() != 64000 {
		t.Errorf("N = %d, want 64000", set.N())
	}
	if set.Hash() != HashXXHash64 {
		t.Errorf("Hash = %s, want xxhash64", set.Hash())
	}
	if set.IndexGranularity() != 128 {
		t.Errorf("IndexGranularity = %d, want 128", set.IndexGranularity())
	}

	stats := set.Stats()
	if stats.NumItems != set.NumItems() || stats.P != 64 || stats.N != 64000 {
		t.Errorf("Stats = %+v", stats)
	}
	// One anchor per full stride of 128 values.
	wantIndex := int64(set.NumItems()/128) * indexEntrySize
	if stats.IndexSize != wantIndex {
		t.Errorf("IndexSize = %d, want %d", stats.IndexSize, wantIndex)
	}
	if stats.BitsPerItem <= 0 {
		t.Errorf("BitsPerItem = %f", stats.BitsPerItem)
	}

	fromPath, err := GetStats(path)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if diff := cmp.Diff(stats, fromPath); diff != "" {
		t.Errorf("GetStats mismatch (-want +got):\n%s", diff)
	}
}
