package gpio

import (
	"errors"
	"testing"
)

func TestFakeReaderReadChannel(t *testing.T) {
	samples := []Sample{
		{true, false, false, false},
		{false, true, false, false},
		{true, true, true, true},
	}

	f := NewFakeReader(samples)

	for tick, s := range samples {
		for id, want := range s {
			got, err := f.ReadChannel(id)
			if err != nil {
				t.Fatalf("tick %d channel %d: unexpected error: %v", tick, id, err)
			}
			if got != want {
				t.Errorf("tick %d channel %d: expected %v, got %v", tick, id, want, got)
			}
		}
	}

	// Fourth read should repeat last sample
	for id := 0; id < 4; id++ {
		got, _ := f.ReadChannel(id)
		if !got {
			t.Errorf("channel %d (repeat): expected true, got false", id)
		}
	}
}

func TestFakeReaderChannelsAdvanceIndependently(t *testing.T) {
	f := NewFakeReader([]Sample{
		{false, false},
		{true, true},
	})

	// Reading channel 0 twice must not move channel 1.
	f.ReadChannel(0)
	if v, _ := f.ReadChannel(0); !v {
		t.Error("channel 0 second read: expected true")
	}
	if v, _ := f.ReadChannel(1); v {
		t.Error("channel 1 first read: expected false")
	}
	if f.Reads[0] != 2 || f.Reads[1] != 1 {
		t.Errorf("reads: got %v", f.Reads)
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	f := NewFakeReader(nil)

	_, err := f.ReadChannel(0)
	if err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeReaderOutOfRange(t *testing.T) {
	f := NewFakeReader([]Sample{{true}})

	if _, err := f.ReadChannel(3); err == nil {
		t.Error("expected error for channel out of range")
	}
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader([]Sample{{true, true}})
	f.ReadError = errors.New("simulated error")

	_, err := f.ReadChannel(0)
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeReaderChannelError(t *testing.T) {
	f := NewFakeReader([]Sample{{true, true}})
	f.ChannelErrors = map[int]error{1: errors.New("line 1 fault")}

	if _, err := f.ReadChannel(0); err != nil {
		t.Errorf("channel 0: unexpected error: %v", err)
	}
	if _, err := f.ReadChannel(1); err == nil {
		t.Error("channel 1: expected error")
	}
}

func TestFakeReaderClose(t *testing.T) {
	f := NewFakeReader([]Sample{{true}})

	if f.Closed {
		t.Error("should not be closed initially")
	}

	err := f.Close()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakeReaderReset(t *testing.T) {
	samples := []Sample{
		{true},
		{false},
	}

	f := NewFakeReader(samples)

	// Consume first sample
	f.ReadChannel(0)

	// Reset
	f.Reset()

	// Should read first sample again
	v, _ := f.ReadChannel(0)
	if v != true {
		t.Errorf("after reset: expected true, got %v", v)
	}
}

func TestDefaultPins(t *testing.T) {
	want := []int{20, 4, 9, 8}
	if len(DefaultPins) != len(want) {
		t.Fatalf("expected %d pins, got %d", len(want), len(DefaultPins))
	}
	for i, p := range want {
		if DefaultPins[i] != p {
			t.Errorf("pin %d: got %d, want %d", i, DefaultPins[i], p)
		}
	}
}
