package protocol

import "errors"

// ErrOutputFull is returned when the scratch buffer cannot take a whole line.
var ErrOutputFull = errors.New("output buffer full")

// ScratchOutput collects outgoing lines in a fixed-size buffer until the
// transport drains it.
type ScratchOutput struct {
	buf     [OutputMax]byte
	pos     int
	dropped int
}

// NewScratchOutput creates a new ScratchOutput
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{pos: 0}
}

// Write appends p whole or not at all, so a drained buffer never holds half
// a line.
func (s *ScratchOutput) Write(p []byte) (int, error) {
	if len(p) > len(s.buf)-s.pos {
		s.dropped++
		return 0, ErrOutputFull
	}
	n := copy(s.buf[s.pos:], p)
	s.pos += n
	return n, nil
}

// Len returns the number of pending bytes
func (s *ScratchOutput) Len() int {
	return s.pos
}

// Result returns the accumulated output data
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Pop removes n bytes that the transport managed to send.
func (s *ScratchOutput) Pop(n int) {
	if n >= s.pos {
		s.pos = 0
		return
	}
	copy(s.buf[:], s.buf[n:s.pos])
	s.pos -= n
}

// Dropped counts writes rejected because the buffer was full.
func (s *ScratchOutput) Dropped() int {
	return s.dropped
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
}

// FifoBuffer is a circular buffer for serial I/O
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a new FifoBuffer with the specified capacity
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends data to the FIFO buffer
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		nextWrite := (f.write + 1) % f.size
		if nextWrite == f.read {
			// Buffer full
			break
		}
		f.buf[f.write] = b
		f.write = nextWrite
		written++
	}
	return written
}

// Push appends one byte, reporting false when full.
func (f *FifoBuffer) Push(b byte) bool {
	nextWrite := (f.write + 1) % f.size
	if nextWrite == f.read {
		return false
	}
	f.buf[f.write] = b
	f.write = nextWrite
	return true
}

// Read reads up to len(data) bytes from the FIFO buffer
func (f *FifoBuffer) Read(data []byte) int {
	read := 0
	for i := range data {
		if f.read == f.write {
			break
		}
		data[i] = f.buf[f.read]
		f.read = (f.read + 1) % f.size
		read++
	}
	return read
}

// Shift removes the oldest byte.
func (f *FifoBuffer) Shift() (byte, bool) {
	if f.read == f.write {
		return 0, false
	}
	b := f.buf[f.read]
	f.read = (f.read + 1) % f.size
	return b, true
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read == f.write
}

// Reset clears the buffer
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}
