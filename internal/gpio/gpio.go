// Package gpio reads the RF receiver outputs wired to GPIO inputs.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader samples input channels.
type Reader interface {
	// ReadChannel returns the level of channel id (0-based, in pin order).
	// The receiver drives the line high while its button is held, so true
	// means pressed.
	ReadChannel(id int) (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Receiver output pins (BCM numbering), in channel order A, B, C, D.
const (
	PinButtonA = 20 // receiver D3
	PinButtonB = 4  // receiver D2
	PinButtonC = 9  // receiver D1
	PinButtonD = 8  // receiver D0
)

// DefaultPins lists the receiver pins in channel order.
var DefaultPins = []int{PinButtonA, PinButtonB, PinButtonC, PinButtonD}

// DefaultChip is the GPIO character device used when none is configured.
const DefaultChip = "gpiochip0"
