//go:build !linux

package bridge

import "errors"

// LineFeedHold is not available on non-Linux platforms.
type LineFeedHold struct{}

// NewLineFeedHold returns an error on non-Linux platforms.
func NewLineFeedHold(chipName string, offset int, activeLow bool) (*LineFeedHold, error) {
	return nil, errors.New("feed hold: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (h *LineFeedHold) Set(hold bool) error {
	return errors.New("feed hold: not supported")
}

// Close is not implemented on non-Linux platforms.
func (h *LineFeedHold) Close() error {
	return nil
}
