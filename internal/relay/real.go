//go:build linux

package relay

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Active-low board: line 0 energizes the relay, line 1 releases it.
const (
	lineEnergized   = 0
	lineDeenergized = 1
)

// RealDriver drives relay channels through the Linux GPIO character device.
type RealDriver struct {
	chip      *gpiocdev.Chip
	lampLine  *gpiocdev.Line
	motorLine *gpiocdev.Line
}

// NewRealDriver requests the two relay lines as outputs, both de-energized.
func NewRealDriver(pinLamp, pinMotor int) (*RealDriver, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	lampLine, err := chip.RequestLine(pinLamp, gpiocdev.AsOutput(lineDeenergized))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request lamp pin %d: %w", pinLamp, err)
	}

	motorLine, err := chip.RequestLine(pinMotor, gpiocdev.AsOutput(lineDeenergized))
	if err != nil {
		lampLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request motor pin %d: %w", pinMotor, err)
	}

	return &RealDriver{
		chip:      chip,
		lampLine:  lampLine,
		motorLine: motorLine,
	}, nil
}

// Apply writes both channels, translating logical on to the active-low level.
func (d *RealDriver) Apply(lamp, motor bool) error {
	if err := d.lampLine.SetValue(lineValue(lamp)); err != nil {
		return fmt.Errorf("set lamp line: %w", err)
	}
	if err := d.motorLine.SetValue(lineValue(motor)); err != nil {
		return fmt.Errorf("set motor line: %w", err)
	}
	return nil
}

// Close de-energizes both relays before releasing the lines, so a daemon
// restart never leaves an actuator running unattended.
func (d *RealDriver) Close() error {
	var errs []error

	if d.lampLine != nil {
		if err := d.lampLine.SetValue(lineDeenergized); err != nil {
			errs = append(errs, fmt.Errorf("release lamp relay: %w", err))
		}
		if err := d.lampLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close lamp line: %w", err))
		}
	}
	if d.motorLine != nil {
		if err := d.motorLine.SetValue(lineDeenergized); err != nil {
			errs = append(errs, fmt.Errorf("release motor relay: %w", err))
		}
		if err := d.motorLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close motor line: %w", err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func lineValue(on bool) int {
	if on {
		return lineEnergized
	}
	return lineDeenergized
}
