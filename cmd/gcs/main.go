// gcs is a command-line tool for building and querying Golomb compressed
// set files.
//
// Usage:
//
//	gcs create --hash hex -p 1000 pwned-hashes.txt pwned.gcs
//	gcs query pwned.gcs < probes.txt
//	gcs stats pwned.gcs
//
// create reads items one per line from the input file (- for stdin) and
// writes a set file. query reads probes one per line from stdin and
// prints Found or Not found per probe with the elapsed time. stats dumps
// the header and derived statistics of an existing file.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/decred/slog"
	flags "github.com/jessevdk/go-flags"

	"github.com/gcset/gcset"
)

// log is the CLI logger. The library itself never logs.
var log = slog.Disabled

// ingestLogInterval is how often create reports ingest progress.
const ingestLogInterval = 5_000_000

// scanBufferSize bounds the longest accepted input line.
const scanBufferSize = 1 << 20

type createCommand struct {
	HashMode    string `long:"hash" choice:"raw" choice:"hex" default:"raw" description:"Input preprocessing: line bytes as-is (raw) or hex-decoded (hex)"`
	HashFn      string `long:"hash-fn" default:"siphash" description:"Hash identity recorded in the file (sha1trunc64, siphash, xxhash64, xxh3, murmur3)"`
	P           uint64 `short:"p" long:"probability" default:"16" description:"Inverse false-positive rate"`
	Granularity uint64 `long:"granularity" default:"1024" description:"Anchor stride in encoded gaps (power of two)"`
	Workers     int    `long:"workers" description:"Parallel hash workers (0 = single-threaded)"`
	KeepDup     bool   `long:"keep-duplicates" description:"Keep duplicate buckets instead of deduplicating"`

	Args struct {
		Input  string `positional-arg-name:"input" description:"Items file, one per line (- for stdin)"`
		Output string `positional-arg-name:"output" description:"Output set file"`
	} `positional-args:"yes" required:"2"`
}

func (c *createCommand) Execute(args []string) error {
	mode, err := gcset.ParsePreprocessing(c.HashMode)
	if err != nil {
		return err
	}
	hashID, err := gcset.ParseHashID(c.HashFn)
	if err != nil {
		return fmt.Errorf("%w: %q", err, c.HashFn)
	}

	input := os.Stdin
	if c.Args.Input != "-" {
		input, err = os.Open(c.Args.Input)
		if err != nil {
			return err
		}
		defer input.Close()
	}

	opts := []gcset.BuildOption{
		gcset.WithHash(hashID),
		gcset.WithIndexGranularity(c.Granularity),
	}
	if c.Workers > 1 {
		opts = append(opts, gcset.WithWorkers(c.Workers))
	}
	if c.KeepDup {
		opts = append(opts, gcset.WithKeepDuplicates())
	}

	builder, err := gcset.NewBuilder(context.Background(), c.Args.Output, c.P, opts...)
	if err != nil {
		return err
	}
	defer builder.Close()

	log.Infof("Ingesting %s (mode=%s, hash=%s, p=%d)", c.Args.Input, mode, hashID, c.P)
	start := time.Now()

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, scanBufferSize), scanBufferSize)
	lineno := 0
	for scanner.Scan() {
		lineno++
		item, err := mode.Apply(scanner.Bytes())
		if err != nil {
			return fmt.Errorf("line %d: %w", lineno, err)
		}
		if err := builder.Add(item); err != nil {
			return fmt.Errorf("line %d: %w", lineno, err)
		}
		if lineno%ingestLogInterval == 0 {
			log.Infof("Ingested %d items", lineno)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input after line %d: %w", lineno, err)
	}
	log.Infof("Ingested %d items in %v", lineno, time.Since(start).Round(time.Millisecond))

	buildStart := time.Now()
	if err := builder.Finish(); err != nil {
		return err
	}
	log.Infof("Built %s in %v", c.Args.Output, time.Since(buildStart).Round(time.Millisecond))

	if stats, err := gcset.GetStats(c.Args.Output); err == nil {
		log.Infof("%d values, %.2f bits/item, %d bytes total",
			stats.NumItems, stats.BitsPerItem, stats.FileSize)
	}
	return nil
}

type queryCommand struct {
	HashMode string `long:"hash" choice:"raw" choice:"hex" default:"raw" description:"Probe preprocessing; must match the build invocation"`

	Args struct {
		File string `positional-arg-name:"file" description:"Set file to query"`
	} `positional-args:"yes" required:"1"`
}

func (c *queryCommand) Execute(args []string) error {
	mode, err := gcset.ParsePreprocessing(c.HashMode)
	if err != nil {
		return err
	}

	set, err := gcset.Open(c.Args.File)
	if err != nil {
		return err
	}
	defer set.Close()

	log.Infof("Opened %s: n=%d, p=%d, hash=%s", c.Args.File, set.NumItems(), set.P(), set.Hash())

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, scanBufferSize), scanBufferSize)
	for scanner.Scan() {
		probe, err := mode.Apply(scanner.Bytes())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		start := time.Now()
		found := set.Contains(probe)
		elapsed := time.Since(start)
		if found {
			fmt.Printf("Found (%v)\n", elapsed)
		} else {
			fmt.Printf("Not found (%v)\n", elapsed)
		}
	}
	return scanner.Err()
}

type statsCommand struct {
	Verify bool `long:"verify" description:"Replay the payload against the anchor index"`

	Args struct {
		File string `positional-arg-name:"file" description:"Set file to inspect"`
	} `positional-args:"yes" required:"1"`
}

func (c *statsCommand) Execute(args []string) error {
	set, err := gcset.Open(c.Args.File)
	if err != nil {
		return err
	}
	defer set.Close()

	stats := set.Stats()
	fmt.Printf("items:        %d\n", stats.NumItems)
	fmt.Printf("p:            %d\n", stats.P)
	fmt.Printf("universe:     %d\n", stats.N)
	fmt.Printf("hash:         %s\n", stats.Hash)
	fmt.Printf("granularity:  %d\n", stats.Granularity)
	fmt.Printf("payload:      %d bytes\n", stats.PayloadSize)
	fmt.Printf("index:        %d bytes\n", stats.IndexSize)
	fmt.Printf("file:         %d bytes\n", stats.FileSize)
	fmt.Printf("bits/item:    %.2f\n", stats.BitsPerItem)

	if c.Verify {
		start := time.Now()
		if err := set.Verify(); err != nil {
			return err
		}
		fmt.Printf("verify:       ok (%v)\n", time.Since(start).Round(time.Millisecond))
	}
	return nil
}

func main() {
	backend := slog.NewBackend(os.Stderr)
	log = backend.Logger("GCS")
	log.SetLevel(slog.LevelInfo)

	parser := flags.NewParser(nil, flags.Default)
	if _, err := parser.AddCommand("create", "Build a set file",
		"Read items one per line and build a Golomb compressed set file.",
		&createCommand{}); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
	if _, err := parser.AddCommand("query", "Query a set file",
		"Read probes from stdin and answer membership per line.",
		&queryCommand{}); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
	if _, err := parser.AddCommand("stats", "Inspect a set file",
		"Print header fields and derived statistics.",
		&statsCommand{}); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
			// go-flags already printed the parse error.
			os.Exit(1)
		}
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
