package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"powercore/protocol"
)

// idlePoll is how long Run waits after a read returned nothing.
const idlePoll = 10 * time.Millisecond

// Link is one connection to the firmware. Run reads; the setters may be
// called from other goroutines.
type Link struct {
	port io.ReadWriteCloser
	log  *zap.Logger

	mu     sync.Mutex
	closed bool

	framer  protocol.LineFramer
	badLine atomic.Uint64
}

// New wraps an open port.
func New(port io.ReadWriteCloser, log *zap.Logger) *Link {
	if log == nil {
		log = zap.NewNop()
	}
	return &Link{port: port, log: log}
}

// Run reads lines until ctx is done or the port fails, calling fn for each
// decoded line. Lines that fail to decode are logged and skipped.
func (l *Link) Run(ctx context.Context, fn func(Line)) error {
	buf := make([]byte, protocol.DataLength)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := l.port.Read(buf)
		for _, b := range buf[:n] {
			raw, ok := l.framer.Feed(b)
			if !ok {
				continue
			}
			line, perr := ParseLine(string(raw))
			if perr != nil {
				l.badLine.Add(1)
				l.log.Warn("undecodable line", zap.String("line", string(raw)), zap.Error(perr))
				continue
			}
			fn(line)
		}
		switch {
		case err == nil && n > 0:
		case err == nil || errors.Is(err, io.EOF):
			// read timeout
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(idlePoll):
			}
		default:
			return fmt.Errorf("read: %w", err)
		}
	}
}

// BadLines counts lines Run could not decode.
func (l *Link) BadLines() uint64 {
	return l.badLine.Load()
}

// SetFrequency asks for a new target output frequency.
func (l *Link) SetFrequency(hz uint32) error {
	return l.Send(protocol.Pair{Key: protocol.CmdFrequency, Value: strconv.FormatUint(uint64(hz), 10)})
}

// SetChargeCeiling sets the per-pulse charge threshold in µC.
func (l *Link) SetChargeCeiling(microCoulombs uint32) error {
	return l.Send(protocol.Pair{Key: protocol.CmdChargeCeiling, Value: strconv.FormatUint(uint64(microCoulombs), 10)})
}

// Send writes one command line holding pairs in order.
func (l *Link) Send(pairs ...protocol.Pair) error {
	if len(pairs) == 0 {
		return nil
	}
	line := FormatCommand(pairs...)
	if len(line) > protocol.LineMax+1 {
		return fmt.Errorf("command line too long: %d bytes", len(line))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("link closed")
	}
	if _, err := l.port.Write(line); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	l.log.Debug("sent command", zap.ByteString("line", line[:len(line)-1]))
	return nil
}

// Close closes the port.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.port.Close()
}

// FormatCommand renders pairs as one newline-terminated command line.
func FormatCommand(pairs ...protocol.Pair) []byte {
	var line []byte
	for i, p := range pairs {
		if i > 0 {
			line = append(line, ',')
		}
		line = append(line, p.Key...)
		line = append(line, '=')
		line = append(line, p.Value...)
	}
	return append(line, '\n')
}
