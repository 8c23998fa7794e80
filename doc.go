// Package gcset implements a Golomb Compressed Set (GCS): a static,
// space-efficient probabilistic membership structure. Like a Bloom filter
// it answers "might this item be in the set?" with no false negatives and
// a tunable false-positive rate of 1/p, but for the same rate the file is
// typically smaller.
//
// Items are hashed to buckets in [0, n*p), sorted, and the gaps between
// consecutive buckets are Rice-coded into a bit-packed payload. A sparse
// anchor index written after the payload allows each query to seek near
// its target and decode at most one stride of codes, so membership checks
// run in O(log anchors + granularity).
//
// # Basic Usage
//
// Building a set:
//
//	builder, err := gcset.NewBuilder(ctx, "set.gcs", 1<<16)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer builder.Close()
//	for _, item := range items {
//	    if err := builder.Add(item); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//	if err := builder.Finish(); err != nil {
//	    log.Fatal(err)
//	}
//
// Querying a set:
//
//	set, err := gcset.Open("set.gcs")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer set.Close()
//
//	if set.Contains([]byte("item")) {
//	    fmt.Println("probably present")
//	}
//
// Sets are immutable once built: there is no insertion, deletion, or
// enumeration, and empty sets are rejected at build time.
//
// # Package Structure
//
// The implementation is organized as follows:
//
//   - Public API: builder.go (NewBuilder, Add, Finish), set.go (Open, Contains, Verify)
//   - Configuration: builder_options.go (BuildOption, With* functions)
//   - Serialization: header.go (header, anchor), writer.go (output pass)
//   - Hashing: hash.go (HashID registry), preprocess.go (raw/hex input modes)
//   - Codec: internal/bits (MSB-first bit I/O), internal/rice (Rice codes)
//   - Platform: fallocate_*.go, madvise_*.go (OS-specific optimizations)
package gcset
