package engine

import "unicode/utf8"

// Delta is one streaming output event. Err is set at most once, as the
// final event before the channel closes.
type Delta struct {
	Text string
	Err  error
}

// chunker buffers token pieces until they form complete UTF-8 text. Token
// boundaries do not line up with character boundaries, so partial multi-byte
// sequences are held back rather than emitted.
type chunker struct {
	pending []byte
}

// add appends a piece and returns the buffered text when it is valid UTF-8.
func (c *chunker) add(piece string) (string, bool) {
	c.pending = append(c.pending, piece...)

	if !utf8.Valid(c.pending) {
		return "", false
	}

	out := string(c.pending)
	c.pending = c.pending[:0]

	return out, true
}

// flush returns whatever buffered text is valid, trimming any trailing
// incomplete multi-byte sequence instead of emitting it.
func (c *chunker) flush() string {
	out := trimIncompleteUTF8(c.pending)
	c.pending = c.pending[:0]

	return string(out)
}

// trimIncompleteUTF8 drops a trailing partial multi-byte sequence: any run
// of continuation bytes plus the lead byte that opened it.
func trimIncompleteUTF8(b []byte) []byte {
	if utf8.Valid(b) {
		return b
	}

	for len(b) > 0 && b[len(b)-1]&0xC0 == 0x80 {
		b = b[:len(b)-1]
	}

	if len(b) > 0 && b[len(b)-1]&0x80 != 0 {
		b = b[:len(b)-1]
	}

	return b
}
