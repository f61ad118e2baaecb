package gpio

import (
	"errors"
	"fmt"
)

// Sample is one tick's worth of channel levels, indexed by channel id.
type Sample []bool

// FakeReader is a test double that returns scripted GPIO levels.
// Each channel consumes its own column of the samples, one value per
// ReadChannel call; once exhausted the last value repeats.
type FakeReader struct {
	// Samples contains the scripted levels, one Sample per tick.
	Samples []Sample

	// next tracks the position of each channel in Samples
	next map[int]int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, is returned by every ReadChannel call.
	ReadError error

	// ChannelErrors, if set for a channel, is returned for that channel only.
	ChannelErrors map[int]error

	// Reads counts ReadChannel calls per channel.
	Reads map[int]int
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{
		Samples: samples,
		next:    make(map[int]int),
		Reads:   make(map[int]int),
	}
}

// ReadChannel returns the next scripted level for channel id.
func (f *FakeReader) ReadChannel(id int) (bool, error) {
	f.Reads[id]++
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if err := f.ChannelErrors[id]; err != nil {
		return false, err
	}
	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	i := f.next[id]
	sample := f.Samples[i]
	if i < len(f.Samples)-1 {
		f.next[id] = i + 1
	}
	if id < 0 || id >= len(sample) {
		return false, fmt.Errorf("channel %d out of range (have %d)", id, len(sample))
	}
	return sample[id], nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds every channel to the first sample.
func (f *FakeReader) Reset() {
	f.next = make(map[int]int)
	f.Reads = make(map[int]int)
	f.Closed = false
}
