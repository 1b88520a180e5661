package control

import "fmt"

// Validate checks the hysteresis band ordering. Each off-bound must leave a
// dead band relative to its on-bound: motor off-bounds below on-bounds,
// lamp off-bound above its on-bound.
func (t Thresholds) Validate() error {
	if t.MotorOffTemp >= t.MotorOnTemp {
		return fmt.Errorf("%w: motor off temperature %.1f must be below on temperature %.1f",
			ErrInvalidThresholds, t.MotorOffTemp, t.MotorOnTemp)
	}
	if t.MotorOffHumidity >= t.MotorOnHumidity {
		return fmt.Errorf("%w: motor off humidity %.1f must be below on humidity %.1f",
			ErrInvalidThresholds, t.MotorOffHumidity, t.MotorOnHumidity)
	}
	if t.LampOffLight <= t.LampOnLight {
		return fmt.Errorf("%w: lamp off light %d must be above on light %d",
			ErrInvalidThresholds, t.LampOffLight, t.LampOnLight)
	}
	return nil
}
