package control

// Evaluate returns the next relay state for one reading under the given
// thresholds. Pure and stateless; safe to call concurrently.
//
// The motor activates on either quantity exceeding its on-bound but only
// deactivates once both have dropped below their off-bounds. The gap
// between the bounds is the dead band that prevents relay chatter.
// The lamp band is inverted: low light turns it on.
func Evaluate(current RelayState, r Reading, th Thresholds) RelayState {
	next := current

	if !next.Motor && (r.Temperature > th.MotorOnTemp || r.Humidity > th.MotorOnHumidity) {
		next.Motor = true
	}
	if next.Motor && r.Temperature < th.MotorOffTemp && r.Humidity < th.MotorOffHumidity {
		next.Motor = false
	}

	if !next.Lamp && r.Light < th.LampOnLight {
		next.Lamp = true
	}
	if next.Lamp && r.Light > th.LampOffLight {
		next.Lamp = false
	}

	return next
}
