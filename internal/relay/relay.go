// Package relay drives the two relay channels with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package relay

// Driver applies logical relay state to the hardware.
type Driver interface {
	// Apply sets both channels. true = energized.
	// The relay board is active low; the translation from logical state
	// to line level happens here, never in the control logic.
	Apply(lamp, motor bool) error

	// Close de-energizes both channels and releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinLamp  = 17 // grow lamp, relay channel 1
	DefaultPinMotor = 27 // ventilation motor, relay channel 2
)
