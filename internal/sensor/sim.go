package sensor

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/control"
)

// SimSource generates a slow random walk of plausible greenhouse readings
// at a fixed sampling period. Used for bench and development runs where no
// sensor node is available.
type SimSource struct {
	ch   chan control.Reading
	stop chan struct{}

	closeOnce sync.Once
}

// NewSimSource starts a simulated source emitting one reading per period.
func NewSimSource(period time.Duration, seed int64) *SimSource {
	s := &SimSource{
		ch:   make(chan control.Reading, 1),
		stop: make(chan struct{}),
	}
	go s.run(period, rand.New(rand.NewSource(seed)))
	return s
}

func (s *SimSource) run(period time.Duration, rng *rand.Rand) {
	temp := 26.0
	humid := 55.0
	light := 50.0

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			close(s.ch)
			return
		case t := <-ticker.C:
			temp = drift(rng, temp, 0.4, 15, 40)
			humid = drift(rng, humid, 1.5, 20, 95)
			light = drift(rng, light, 3, 0, 100)
			offer(s.ch, control.Reading{
				Temperature: temp,
				Humidity:    humid,
				Light:       ClampLight(int(light)),
				Time:        t,
			})
		}
	}
}

func drift(rng *rand.Rand, v, step, min, max float64) float64 {
	v += (rng.Float64()*2 - 1) * step
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Readings returns the reading channel.
func (s *SimSource) Readings() <-chan control.Reading {
	return s.ch
}

// Close stops the simulation.
func (s *SimSource) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	return nil
}
