package relay

// FakeDriver records applied states for test assertions.
type FakeDriver struct {
	// Applies contains every (lamp, motor) pair passed to Apply, in order.
	Applies []Applied

	// ApplyError, if set, will be returned by Apply.
	ApplyError error

	// Closed tracks if Close was called.
	Closed bool
}

// Applied is a single recorded Apply call.
type Applied struct {
	Lamp  bool
	Motor bool
}

// NewFakeDriver creates a FakeDriver for testing.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// Apply records the requested state.
func (f *FakeDriver) Apply(lamp, motor bool) error {
	if f.ApplyError != nil {
		return f.ApplyError
	}
	f.Applies = append(f.Applies, Applied{Lamp: lamp, Motor: motor})
	return nil
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.Closed = true
	return nil
}

// Last returns the most recently applied state, or a zero state if Apply
// was never called.
func (f *FakeDriver) Last() Applied {
	if len(f.Applies) == 0 {
		return Applied{}
	}
	return f.Applies[len(f.Applies)-1]
}

// Reset clears recorded applies.
func (f *FakeDriver) Reset() {
	f.Applies = nil
	f.Closed = false
	f.ApplyError = nil
}
