package protocol

// LineFramer assembles command lines from a byte stream. A line ends at
// '\n' or '\r'; bytes past LineMax are discarded until the terminator.
// Some senders omit the terminator entirely, so Flush hands out a pending
// partial line once the link has gone quiet.
type LineFramer struct {
	buf       [LineMax]byte
	n         int
	truncated bool
	lastTrunc bool
	out       [LineMax]byte
}

// Feed adds one byte. When it completes a non-empty line the line is
// returned; the slice is valid until the next call to Feed or Flush.
func (f *LineFramer) Feed(b byte) ([]byte, bool) {
	if b == '\n' || b == '\r' {
		return f.take()
	}
	if f.n == len(f.buf) {
		f.truncated = true
		return nil, false
	}
	f.buf[f.n] = b
	f.n++
	return nil, false
}

// Flush returns whatever partial line is pending.
func (f *LineFramer) Flush() ([]byte, bool) {
	return f.take()
}

// Pending returns the number of buffered bytes.
func (f *LineFramer) Pending() int {
	return f.n
}

// Truncated reports whether the last returned line lost bytes.
func (f *LineFramer) Truncated() bool {
	return f.lastTrunc
}

func (f *LineFramer) take() ([]byte, bool) {
	if f.n == 0 {
		f.truncated = false
		return nil, false
	}
	n := copy(f.out[:], f.buf[:f.n])
	f.n = 0
	f.lastTrunc = f.truncated
	f.truncated = false
	return f.out[:n], true
}
