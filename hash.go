package gcset

import (
	"crypto/sha1"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"

	gcserrors "github.com/gcset/gcset/errors"
)

// HashID identifies the 64-bit hash function used to map items to buckets.
// It is stored in the file header: a build/query mismatch would silently
// produce random answers, so the identity travels with the file and an
// unknown ID fails cleanly at open time.
type HashID uint8

const (
	// HashSHA1Trunc64 is SHA-1 truncated to its first 8 digest bytes,
	// interpreted big-endian.
	HashSHA1Trunc64 HashID = 0

	// HashSipHash24 is SipHash-2-4 with an all-zero key. Only uniformity
	// is required of the hash, not unforgeability, so a fixed key is fine.
	HashSipHash24 HashID = 1

	// HashXXHash64 is xxHash64 with seed 0.
	HashXXHash64 HashID = 2

	// HashXXH3 is XXH3-64 with seed 0.
	HashXXH3 HashID = 3

	// HashMurmur3 is MurmurHash3's 64-bit finalized output with seed 0.
	HashMurmur3 HashID = 4
)

// DefaultHash is the hash identity used when a build does not pick one.
const DefaultHash = HashSipHash24

// String returns the hash name as used by the CLI.
func (id HashID) String() string {
	switch id {
	case HashSHA1Trunc64:
		return "sha1trunc64"
	case HashSipHash24:
		return "siphash"
	case HashXXHash64:
		return "xxhash64"
	case HashXXH3:
		return "xxh3"
	case HashMurmur3:
		return "murmur3"
	default:
		return "unknown"
	}
}

// ParseHashID resolves a hash name as printed by String.
func ParseHashID(name string) (HashID, error) {
	for id := HashSHA1Trunc64; id <= HashMurmur3; id++ {
		if id.String() == name {
			return id, nil
		}
	}
	return 0, gcserrors.ErrUnsupportedHash
}

func (id HashID) valid() bool {
	return id <= HashMurmur3
}

// hashFunc returns the 64-bit hash function for id.
func hashFunc(id HashID) (func([]byte) uint64, error) {
	switch id {
	case HashSHA1Trunc64:
		return sha1Trunc64, nil
	case HashSipHash24:
		return sipHash64, nil
	case HashXXHash64:
		return xxhash.Sum64, nil
	case HashXXH3:
		return xxh3.Hash, nil
	case HashMurmur3:
		return murmur3.Sum64, nil
	}
	return nil, gcserrors.ErrUnsupportedHash
}

func sha1Trunc64(item []byte) uint64 {
	sum := sha1.Sum(item)
	return binary.BigEndian.Uint64(sum[:8])
}

func sipHash64(item []byte) uint64 {
	return siphash.Hash(0, 0, item)
}
