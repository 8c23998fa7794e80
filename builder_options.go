package gcset

const (
	// defaultGranularity is the anchor stride: one anchor per this many
	// encoded gaps. 1024 keeps the anchor table near 1.5% of the payload
	// while bounding per-query decode work.
	defaultGranularity = 1024
)

// BuildOption is a functional option for configuring builds.
type BuildOption func(*buildConfig)

type buildConfig struct {
	hash           HashID
	granularity    uint64
	keepDuplicates bool
	expectedItems  uint64
	workers        int
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		hash:        DefaultHash,
		granularity: defaultGranularity,
	}
}

// WithHash selects the hash identity recorded in the file header.
func WithHash(id HashID) BuildOption {
	return func(c *buildConfig) {
		c.hash = id
	}
}

// WithIndexGranularity sets the anchor stride in encoded gaps.
// n must be a power of two; NewBuilder rejects other values.
func WithIndexGranularity(n uint64) BuildOption {
	return func(c *buildConfig) {
		c.granularity = n
	}
}

// WithKeepDuplicates disables the removal of duplicate buckets before
// encoding. The resulting file is larger but answers every probe
// identically; builds of multisets are deterministic either way.
func WithKeepDuplicates() BuildOption {
	return func(c *buildConfig) {
		c.keepDuplicates = true
	}
}

// WithExpectedItems pre-sizes the in-memory bucket array. Purely a
// capacity hint: the bucket universe is always derived from the items
// actually ingested.
func WithExpectedItems(n uint64) BuildOption {
	return func(c *buildConfig) {
		c.expectedItems = n
	}
}

// WithWorkers enables parallel hashing of ingested items with n workers.
// Item order before the sort does not matter, so the output file is
// byte-identical to a single-threaded build.
func WithWorkers(n int) BuildOption {
	return func(c *buildConfig) {
		c.workers = n
	}
}
