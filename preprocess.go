package gcset

import (
	"encoding/hex"
	"fmt"

	gcserrors "github.com/gcset/gcset/errors"
)

// Preprocessing selects how item bytes are obtained from an input line
// before hashing. It is a property of the build invocation, not of the
// file format: the file stores only post-hash buckets, and queries must
// preprocess probes the same way the build did.
type Preprocessing int

const (
	// PreprocessRaw uses the line bytes as-is.
	PreprocessRaw Preprocessing = iota

	// PreprocessHex decodes the line as hexadecimal digits. Empty lines,
	// odd lengths, and invalid nibbles are rejected.
	PreprocessHex
)

// ParsePreprocessing resolves a mode name as used by the CLI.
func ParsePreprocessing(name string) (Preprocessing, error) {
	switch name {
	case "raw":
		return PreprocessRaw, nil
	case "hex":
		return PreprocessHex, nil
	}
	return 0, fmt.Errorf("%w: unknown preprocessing mode %q", gcserrors.ErrBadInputLine, name)
}

// String returns the mode name as used by the CLI.
func (p Preprocessing) String() string {
	switch p {
	case PreprocessRaw:
		return "raw"
	case PreprocessHex:
		return "hex"
	default:
		return "unknown"
	}
}

// Apply converts one input line into item bytes. Raw mode never fails.
// Hex mode fails with ErrBadInputLine on malformed input; the caller is
// expected to attach the line number.
func (p Preprocessing) Apply(line []byte) ([]byte, error) {
	switch p {
	case PreprocessRaw:
		return line, nil
	case PreprocessHex:
		if len(line) == 0 {
			return nil, fmt.Errorf("%w: empty line", gcserrors.ErrBadInputLine)
		}
		out := make([]byte, hex.DecodedLen(len(line)))
		if _, err := hex.Decode(out, line); err != nil {
			return nil, fmt.Errorf("%w: %v", gcserrors.ErrBadInputLine, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unknown preprocessing mode %d", gcserrors.ErrBadInputLine, p)
}
