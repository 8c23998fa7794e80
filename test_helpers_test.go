package gcset

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand"
	"path/filepath"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewSource(int64((testSeed1 ^ s1) ^ (testSeed2 ^ s2))))
}

// generateRandomItems creates n deterministic pseudo-random items of the
// specified size.
func generateRandomItems(rng *rand.Rand, n, itemSize int) [][]byte {
	items := make([][]byte, n)
	for i := range items {
		items[i] = make([]byte, itemSize)
		for j := 0; j+8 <= itemSize; j += 8 {
			binary.LittleEndian.PutUint64(items[i][j:], rng.Uint64())
		}
		if tail := itemSize % 8; tail > 0 {
			v := rng.Uint64()
			for j := 0; j < tail; j++ {
				items[i][itemSize-tail+j] = byte(v >> (j * 8))
			}
		}
	}
	return items
}

// buildSetFile builds a set from items into a temp file and returns its path.
func buildSetFile(t testing.TB, items [][]byte, p uint64, opts ...BuildOption) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.gcs")
	builder, err := NewBuilder(context.Background(), path, p, opts...)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer builder.Close()
	for _, item := range items {
		if err := builder.Add(item); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := builder.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return path
}

// buildAndOpen builds a set from items and opens it for querying.
func buildAndOpen(t testing.TB, items [][]byte, p uint64, opts ...BuildOption) *Set {
	t.Helper()
	set, err := Open(buildSetFile(t, items, p, opts...))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { set.Close() })
	return set
}

// stringItems converts string literals to item byte slices.
func stringItems(ss ...string) [][]byte {
	items := make([][]byte, len(ss))
	for i, s := range ss {
		items[i] = []byte(s)
	}
	return items
}

// sequentialItems returns n distinct printable items.
func sequentialItems(n int) [][]byte {
	items := make([][]byte, n)
	for i := range items {
		items[i] = []byte(fmt.Sprintf("item-%08d", i))
	}
	return items
}
