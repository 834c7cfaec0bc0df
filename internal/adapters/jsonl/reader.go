// Package jsonl provides line-oriented source and sink adapters for
// newline-delimited JSON streams, with transparent gzip support
package jsonl

import (
	"bufio"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"strings"
)

const (
	maxScanTokenSize = 32 * 1024 * 1024
	initialBufSize   = 512 * 1024
)

// Reader streams raw lines from an input stream.
// It does not parse or classify lines; that is the ingest pipeline's job
type Reader struct {
	r     io.ReadCloser
	gz    *gzip.Reader
	sc    *bufio.Scanner
	err   error
	lines int
	bytes int64
}

// NewReader creates a Reader over a plain line stream
func NewReader(r io.ReadCloser) *Reader {
	sc := bufio.NewScanner(r)
	buf := make([]byte, initialBufSize)
	sc.Buffer(buf, maxScanTokenSize)
	return &Reader{r: r, sc: sc}
}

// NewGzipReader creates a Reader over a gzip-compressed line stream
func NewGzipReader(r io.ReadCloser) (*Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		if cerr := r.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}
	sc := bufio.NewScanner(gz)
	buf := make([]byte, initialBufSize)
	sc.Buffer(buf, maxScanTokenSize)
	return &Reader{r: r, gz: gz, sc: sc}, nil
}

// OpenSource opens path as a line source. "-" means stdin;
// a ".gz" suffix selects transparent decompression
func OpenSource(path string) (*Reader, error) {
	if path == "-" {
		return NewReader(io.NopCloser(os.Stdin)), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		return NewGzipReader(f)
	}
	return NewReader(f), nil
}

// Next returns the next line (without the trailing newline) and its 1-based
// line number; io.EOF when the stream is exhausted.
// The returned slice is a copy and stays valid across calls
func (rd *Reader) Next() ([]byte, int, error) {
	if rd.err != nil {
		return nil, rd.lines, rd.err
	}
	if !rd.sc.Scan() {
		if err := rd.sc.Err(); err != nil {
			rd.err = err
			return nil, rd.lines, err
		}
		rd.err = io.EOF
		return nil, rd.lines, io.EOF
	}
	line := rd.sc.Bytes()
	cp := make([]byte, len(line))
	copy(cp, line)
	rd.lines++
	rd.bytes += int64(len(cp) + 1) // include newline
	return cp, rd.lines, nil
}

// Close closes the underlying stream
func (rd *Reader) Close() error {
	var first error
	if rd.gz != nil {
		if err := rd.gz.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			first = err
		}
	}
	if rd.r != nil {
		if err := rd.r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Stats returns the number of lines read and total bytes consumed so far
func (rd *Reader) Stats() (lines int, bytes int64) {
	return rd.lines, rd.bytes
}
