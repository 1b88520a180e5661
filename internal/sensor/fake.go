package sensor

import "github.com/sweeney/greenhouse-controller/internal/control"

// FakeSource is a test double fed by the test itself.
type FakeSource struct {
	ch chan control.Reading

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates a FakeSource with the given channel depth.
func NewFakeSource(depth int) *FakeSource {
	return &FakeSource{ch: make(chan control.Reading, depth)}
}

// Push delivers a reading to the consumer. Blocks if the channel is full.
func (f *FakeSource) Push(r control.Reading) {
	f.ch <- r
}

// Readings returns the reading channel.
func (f *FakeSource) Readings() <-chan control.Reading {
	return f.ch
}

// Close marks the source as closed and closes the channel.
func (f *FakeSource) Close() error {
	if !f.Closed {
		f.Closed = true
		close(f.ch)
	}
	return nil
}
