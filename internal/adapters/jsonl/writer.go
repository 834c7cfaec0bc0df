package jsonl

import (
	"bufio"
	"io"
	"os"
)

// Writer emits one JSON value per line to an output stream
type Writer struct {
	w     io.WriteCloser
	bw    *bufio.Writer
	lines int
}

// NewWriter creates a buffered line sink
func NewWriter(w io.WriteCloser) *Writer {
	return &Writer{w: w, bw: bufio.NewWriterSize(w, initialBufSize)}
}

// OpenSink opens path as a line sink. "-" means stdout
func OpenSink(path string) (*Writer, error) {
	if path == "-" {
		return NewWriter(nopWriteCloser{os.Stdout}), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return NewWriter(f), nil
}

// WriteLine writes one line followed by a newline
func (w *Writer) WriteLine(line []byte) error {
	if _, err := w.bw.Write(line); err != nil {
		return err
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}
	w.lines++
	return nil
}

// Lines returns the number of lines written so far
func (w *Writer) Lines() int { return w.lines }

// Flush forces buffered lines to the underlying stream
func (w *Writer) Flush() error { return w.bw.Flush() }

// Close flushes and closes the underlying stream
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		_ = w.w.Close()
		return err
	}
	return w.w.Close()
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
