//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads GPIO from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// NewRealReader requests one input line per pin on the named chip.
func NewRealReader(chipName string, pins []int) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	r := &RealReader{chip: chip}
	for id, pin := range pins {
		// Pull-up keeps an idle line at a defined level; the receiver
		// module drives it explicitly.
		line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request channel %d pin %d: %w", id, pin, err)
		}
		r.lines = append(r.lines, line)
	}
	return r, nil
}

// ReadChannel returns the raw level of channel id (high = pressed).
func (r *RealReader) ReadChannel(id int) (bool, error) {
	if id < 0 || id >= len(r.lines) {
		return false, fmt.Errorf("channel %d out of range (have %d)", id, len(r.lines))
	}
	v, err := r.lines[id].Value()
	if err != nil {
		return false, fmt.Errorf("read channel %d: %w", id, err)
	}
	return v == 1, nil
}

// Close releases GPIO resources.
// Lines are left as inputs with pull-up before closing so the pins stay in a
// defined state after the daemon exits.
func (r *RealReader) Close() error {
	var errs []error

	for id, line := range r.lines {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure channel %d: %w", id, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel %d: %w", id, err))
		}
	}
	r.lines = nil
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
