// Bench is a benchmarking tool for measuring gcset build performance,
// query throughput, and memory usage.
//
// Usage:
//
//	go run ./cmd/bench -items 10000000 -p 1000 -workers 4
//
// Flags:
//
//	-items        Number of items to insert (default: 1,000,000)
//	-p            Inverse false-positive rate (default: 1000)
//	-granularity  Anchor stride in encoded gaps (default: 1024)
//	-workers      Parallel hash workers for the build (default: 1)
//	-probes       Number of miss probes for query throughput (default: 1,000,000)
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/gcset/gcset"
)

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024 // Convert KB to bytes on Linux
	}
	return maxRSS
}

func main() {
	itemsFlag := flag.Int("items", 1_000_000, "number of items")
	pFlag := flag.Uint64("p", 1000, "inverse false-positive rate")
	granularityFlag := flag.Uint64("granularity", 1024, "anchor stride in encoded gaps")
	workersFlag := flag.Int("workers", 1, "parallel hash workers for the build")
	probesFlag := flag.Int("probes", 1_000_000, "number of miss probes")
	flag.Parse()

	numItems := *itemsFlag
	numProbes := *probesFlag

	fmt.Println("Generating items...")
	items := make([][16]byte, numItems)
	for i := range items {
		_, _ = rand.Read(items[i][:]) // crypto/rand.Read error is fatal system issue; ignore for benchmark
	}

	tmpDir, err := os.MkdirTemp("", "gcset-bench-")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		return
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	setPath := filepath.Join(tmpDir, "bench.gcs")

	fmt.Printf("Building (p=%d, granularity=%d, workers=%d)...\n",
		*pFlag, *granularityFlag, *workersFlag)
	buildStart := time.Now()

	opts := []gcset.BuildOption{
		gcset.WithIndexGranularity(*granularityFlag),
		gcset.WithExpectedItems(uint64(numItems)),
	}
	if *workersFlag > 1 {
		opts = append(opts, gcset.WithWorkers(*workersFlag))
	}
	builder, err := gcset.NewBuilder(context.Background(), setPath, *pFlag, opts...)
	if err != nil {
		fmt.Printf("NewBuilder failed: %v\n", err)
		return
	}
	defer builder.Close()
	for i := range items {
		if err := builder.Add(items[i][:]); err != nil {
			fmt.Printf("Add failed: %v\n", err)
			return
		}
	}
	if err := builder.Finish(); err != nil {
		fmt.Printf("Finish failed: %v\n", err)
		return
	}
	buildDuration := time.Since(buildStart)

	stats, err := gcset.GetStats(setPath)
	if err != nil {
		fmt.Printf("GetStats failed: %v\n", err)
		return
	}

	set, err := gcset.Open(setPath)
	if err != nil {
		fmt.Printf("Open failed: %v\n", err)
		return
	}
	defer set.Close()

	fmt.Println("Querying members...")
	hitStart := time.Now()
	for i := range items {
		if !set.Contains(items[i][:]) {
			fmt.Printf("false negative at item %d\n", i)
			return
		}
	}
	hitDuration := time.Since(hitStart)

	fmt.Println("Querying misses...")
	probe := make([]byte, 24)
	falsePositives := 0
	missStart := time.Now()
	for i := 0; i < numProbes; i++ {
		_, _ = rand.Read(probe)
		if set.Contains(probe) {
			falsePositives++
		}
	}
	missDuration := time.Since(missStart)

	fmt.Println()
	fmt.Printf("Build:           %v (%.0f items/s)\n",
		buildDuration.Round(time.Millisecond),
		float64(numItems)/buildDuration.Seconds())
	fmt.Printf("File:            %d bytes (%.2f bits/item)\n",
		stats.FileSize, stats.BitsPerItem)
	fmt.Printf("Member queries:  %v (%.0f/s)\n",
		hitDuration.Round(time.Millisecond),
		float64(numItems)/hitDuration.Seconds())
	fmt.Printf("Miss queries:    %v (%.0f/s)\n",
		missDuration.Round(time.Millisecond),
		float64(numProbes)/missDuration.Seconds())
	fmt.Printf("False positives: %d of %d (expected ~%d)\n",
		falsePositives, numProbes, numProbes/int(*pFlag))
	fmt.Printf("Max RSS:         %.1f MB\n", float64(getMaxRSS())/(1024*1024))
}
