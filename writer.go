package gcset

import (
	"bufio"
	"errors"
	"fmt"
	"os"
)

// writeBufferSize is the bufio buffer for the single front-to-back output
// pass.
const writeBufferSize = 1 << 20

// writeSetFile writes header, payload, and anchor table to path in one
// sequential pass. The file is preallocated to its final size first so a
// full disk fails upfront rather than mid-write. Any error removes the
// partial file; write errors report the byte offset at which they occurred.
func writeSetFile(path string, hdr *header, payload []byte, anchors []anchor) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	totalSize := int64(headerSize) + int64(len(payload)) + int64(len(anchors))*indexEntrySize
	if err := fallocateFile(file, totalSize); err != nil {
		primaryErr := fmt.Errorf("allocate %d bytes: %w", totalSize, err)
		return errors.Join(primaryErr, file.Close(), os.Remove(path))
	}

	w := bufio.NewWriterSize(file, writeBufferSize)
	offset := int64(0)

	fail := func(section string, err error) error {
		primaryErr := fmt.Errorf("write %s at offset %d: %w", section, offset, err)
		return errors.Join(primaryErr, file.Close(), os.Remove(path))
	}

	var hdrBuf [headerSize]byte
	hdr.encodeTo(hdrBuf[:])
	if _, err := w.Write(hdrBuf[:]); err != nil {
		return fail("header", err)
	}
	offset += headerSize

	if _, err := w.Write(payload); err != nil {
		return fail("payload", err)
	}
	offset += int64(len(payload))

	var entryBuf [indexEntrySize]byte
	for _, a := range anchors {
		encodeAnchorTo(a, entryBuf[:])
		if _, err := w.Write(entryBuf[:]); err != nil {
			return fail("index", err)
		}
		offset += indexEntrySize
	}

	if err := w.Flush(); err != nil {
		return fail("index", err)
	}
	if err := file.Sync(); err != nil {
		primaryErr := fmt.Errorf("sync output file: %w", err)
		return errors.Join(primaryErr, file.Close(), os.Remove(path))
	}
	if err := file.Close(); err != nil {
		return errors.Join(fmt.Errorf("close output file: %w", err), os.Remove(path))
	}
	return nil
}
