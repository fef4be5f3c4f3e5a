// Package stream implements the chat stream wire format: splitting a byte
// stream into lines, classifying `data: ` lines into frames, and encoding
// frames for the server side.
package stream

import "bytes"

// LineDecoder splits a chunked byte stream into newline-terminated lines.
//
// Bytes are buffered until a '\n' arrives, and a line is converted to a
// string only once it is complete. A multi-byte rune split across chunks is
// therefore never decoded in halves.
type LineDecoder struct {
	buf []byte
}

// NewLineDecoder creates an empty decoder
func NewLineDecoder() *LineDecoder {
	return &LineDecoder{}
}

// Feed appends chunk and returns every line it completes, without the
// terminating newline. The trailing fragment is kept for the next call.
func (d *LineDecoder) Feed(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var lines []string
	start := 0
	for {
		i := bytes.IndexByte(d.buf[start:], '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(d.buf[start:start+i]))
		start += i + 1
	}

	if start > 0 {
		n := copy(d.buf, d.buf[start:])
		d.buf = d.buf[:n]
	}
	return lines
}

// Pending returns the number of buffered bytes not yet terminated
func (d *LineDecoder) Pending() int {
	return len(d.buf)
}

// Finish ends the stream. An unterminated trailing fragment is not a valid
// frame and is discarded; its length is returned.
func (d *LineDecoder) Finish() int {
	n := len(d.buf)
	d.buf = d.buf[:0]
	return n
}
