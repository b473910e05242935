package core

// streaming.go wraps export readers so the CSV tokenizer sees clean input
// without loading the whole file:
//
//   - bomReader drops a leading UTF-8 BOM written by spreadsheet tools
//   - utf8Sanitizer replaces invalid UTF-8 bytes with '?'
//   - CountingReader tracks bytes read and enforces a size limit
//
// Use WrapExport to apply all three in the correct order.

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// bomReader skips the UTF-8 BOM (0xEF 0xBB 0xBF) if the stream starts with one.
type bomReader struct {
	r       io.Reader
	checked bool
	pending []byte
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		var head [3]byte
		n, err := io.ReadFull(b.r, head[:])
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return 0, err
		}
		if !(n == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF) {
			b.pending = append(b.pending, head[:n]...)
		}
	}

	if len(b.pending) > 0 {
		n := copy(p, b.pending)
		b.pending = b.pending[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// utf8Sanitizer replaces invalid UTF-8 bytes with '?'. A multi-byte sequence
// split across reads is carried over to the next fill, and sanitized output
// that does not fit the caller's buffer is held for the next Read.
type utf8Sanitizer struct {
	r       io.Reader
	buf     []byte
	carry   []byte
	pending []byte
	err     error
}

const sanitizeChunk = 4096

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.pending) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// fill reads the next chunk into buf and leaves its sanitized form in pending.
func (s *utf8Sanitizer) fill() {
	if s.buf == nil {
		s.buf = make([]byte, sanitizeChunk)
	}
	offset := copy(s.buf, s.carry)
	s.carry = s.carry[:0]

	n, err := s.r.Read(s.buf[offset:])
	s.err = err
	data := s.buf[:offset+n]
	if err == nil {
		if tail := incompleteTail(data); tail > 0 {
			s.carry = append(s.carry, data[len(data)-tail:]...)
			data = data[:len(data)-tail]
		}
	}
	s.pending = sanitizeUTF8(data)
}

// sanitizeUTF8 rewrites invalid bytes in data to '?' in place.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return data[:write]
}

// incompleteTail returns how many trailing bytes start a multi-byte sequence
// that is not yet complete.
func incompleteTail(data []byte) int {
	for i := 1; i <= 3 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b&0xC0 == 0x80 {
			continue // continuation byte
		}
		if b < 0xC0 {
			return 0
		}
		want := 2
		switch {
		case b >= 0xF0:
			want = 4
		case b >= 0xE0:
			want = 3
		}
		if i < want {
			return i
		}
		return 0
	}
	return 0
}

// CountingReader tracks bytes read and fails once Limit is exceeded.
type CountingReader struct {
	r         io.Reader
	BytesRead int64
	Limit     int64 // 0 disables the check
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.BytesRead += int64(n)
	if c.Limit > 0 && c.BytesRead > c.Limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, c.Limit)
	}
	return n, err
}

// WrapExport wraps r with BOM skipping, UTF-8 sanitization and byte counting.
//
// The order matters: the BOM is stripped before sanitization would turn it
// into text, and counting wraps everything.
func WrapExport(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{
		r:     &utf8Sanitizer{r: &bomReader{r: r}},
		Limit: limit,
	}
}
