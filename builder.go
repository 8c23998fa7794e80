package gcset

import (
	"context"
	"fmt"
	mathbits "math/bits"
	"os"
	"slices"

	gcserrors "github.com/gcset/gcset/errors"
	"github.com/gcset/gcset/internal/bits"
	"github.com/gcset/gcset/internal/rice"
)

// contextCheckInterval is how often to check for context cancellation
// during Add.
const contextCheckInterval = 10000

// Builder constructs a Golomb compressed set file.
//
// Usage:
//
//	builder, err := gcset.NewBuilder(ctx, "set.gcs", 1<<16)
//	if err != nil { return err }
//	defer builder.Close() // Clean up on error
//
//	for _, item := range items {
//	    if err := builder.Add(item); err != nil { return err }
//	}
//	return builder.Finish()
//
// Items are hashed as they arrive; only one uint64 per item is retained
// until Finish, which sorts the buckets, Rice-encodes the gap stream with
// anchor sampling, and writes the output file in a single front-to-back
// pass. The number of items never needs to be declared up front: the
// bucket universe N = m*p is fixed from the number of distinct items
// actually ingested, which
// preserves the 1/p false-positive rate when the input size was misjudged.
//
// A Builder is not safe for concurrent use. Use WithWorkers to parallelize
// hashing internally instead.
type Builder struct {
	ctx         context.Context
	cfg         *buildConfig
	hashFn      func([]byte) uint64
	output      string
	p           uint64
	hashes      []uint64
	itemCounter int
	finished    bool
	closed      bool

	// Parallel ingest (nil when workers <= 1)
	pool *hashPool
}

// NewBuilder creates a builder writing to the output path. p is the
// inverse false-positive rate and must be at least 2. The output file is
// created by Finish; a failed or abandoned build leaves nothing behind
// once Close runs.
func NewBuilder(ctx context.Context, output string, p uint64, opts ...BuildOption) (*Builder, error) {
	if p < 2 {
		return nil, gcserrors.ErrInvalidP
	}

	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	g := cfg.granularity
	if g == 0 || g&(g-1) != 0 || g > 1<<maxGranularityLog2 {
		return nil, gcserrors.ErrInvalidGranularity
	}

	hashFn, err := hashFunc(cfg.hash)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		ctx:    ctx,
		cfg:    cfg,
		hashFn: hashFn,
		output: output,
		p:      p,
		hashes: make([]uint64, 0, cfg.expectedItems),
	}

	if cfg.workers > 1 {
		b.pool = newHashPool(ctx, hashFn, cfg.workers)
	}

	return b, nil
}

// Add ingests one item. The item bytes are not retained; only the 64-bit
// hash is kept until Finish.
func (b *Builder) Add(item []byte) error {
	if b.closed || b.finished {
		return gcserrors.ErrBuilderClosed
	}

	b.itemCounter++
	if b.itemCounter%contextCheckInterval == 0 {
		if err := b.ctx.Err(); err != nil {
			return err
		}
	}

	if b.pool != nil {
		return b.pool.add(item)
	}
	b.hashes = append(b.hashes, b.hashFn(item))
	return nil
}

// AddString ingests one item given as a string.
func (b *Builder) AddString(item string) error {
	return b.Add([]byte(item))
}

// Finish sorts the ingested buckets, encodes the gap stream, and writes
// the output file. After a successful Finish the builder is spent; Close
// is still safe to call and leaves the output in place.
func (b *Builder) Finish() error {
	if b.closed || b.finished {
		return gcserrors.ErrBuilderClosed
	}

	if b.pool != nil {
		hashes, err := b.pool.drain()
		if err != nil {
			return err
		}
		b.hashes = append(b.hashes, hashes...)
	}

	// Builds may be cancelled between the ingest and encode phases.
	if err := b.ctx.Err(); err != nil {
		return err
	}

	if len(b.hashes) == 0 {
		return gcserrors.ErrEmptySet
	}

	// The universe is fixed from the count of distinct raw 64-bit hashes:
	// equal items hash equally, so a multiset build and its set build see
	// the same m and the same N. With dedup (the default) the two produce
	// byte-identical files; with duplicates kept only gap-zero codes are
	// added and every probe still answers identically.
	slices.Sort(b.hashes)
	values := b.hashes
	if !b.cfg.keepDuplicates {
		values = slices.Compact(values)
	}
	m := uint64(len(values))
	if b.cfg.keepDuplicates {
		m = 0
		for i, h := range values {
			if i == 0 || h != values[i-1] {
				m++
			}
		}
	}
	hi, n := mathbits.Mul64(m, b.p)
	if hi != 0 {
		return gcserrors.ErrUniverseOverflow
	}

	// Reduce to buckets in [0, N), then establish the sorted order the
	// payload mirrors. Reduction does not preserve order, so sort again.
	for i := range values {
		values[i] %= n
	}
	slices.Sort(values)
	if !b.cfg.keepDuplicates {
		// Distinct hashes may still collide within [0, N).
		values = slices.Compact(values)
	}

	payload, bitLen, anchors := encodeGaps(values, b.p, b.cfg.granularity)

	hdr := header{
		HashID:          b.cfg.hash,
		GranularityLog2: uint8(mathbits.TrailingZeros64(b.cfg.granularity)),
		NumItems:        uint64(len(values)),
		P:               b.p,
		N:               n,
		PayloadBitLen:   bitLen,
		IndexEntryCount: uint64(len(anchors)),
		PayloadOffset:   headerSize,
		IndexOffset:     headerSize + uint64(len(payload)),
	}

	if err := writeSetFile(b.output, &hdr, payload, anchors); err != nil {
		return err
	}

	b.finished = true
	return nil
}

// Close releases builder resources. If Finish has not succeeded, any
// partial output file is removed (cancellation counts as failure). Safe
// to call multiple times.
func (b *Builder) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	if b.pool != nil {
		b.pool.abort()
	}
	if !b.finished {
		if err := os.Remove(b.output); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove partial output: %w", err)
		}
	}
	return nil
}

// encodeGaps Rice-encodes the sorted bucket values as a gap stream and
// samples one anchor per granularity codes. The anchor records the bucket
// value and the bit position immediately after its code, so a decode
// seeded there resumes with the following value.
func encodeGaps(values []uint64, p, granularity uint64) ([]byte, uint64, []anchor) {
	width := uint64(rice.RemainderWidth(p))
	w := bits.NewWriter(uint64(len(values)) * (width + 2))
	enc := rice.NewEncoder(w, p)

	anchors := make([]anchor, 0, uint64(len(values))/granularity)
	mask := granularity - 1
	prev := uint64(0)
	for i, v := range values {
		enc.Encode(v - prev)
		prev = v
		if uint64(i+1)&mask == 0 {
			anchors = append(anchors, anchor{value: v, bitOffset: w.BitPosition()})
		}
	}

	bitLen := w.Flush()
	return w.Bytes(), bitLen, anchors
}
