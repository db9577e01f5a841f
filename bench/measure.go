package bench

import (
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
)

// Op is one timed round-trip operation. Ops must fully overwrite their
// observable outputs so repeated invocation is safe.
type Op func() error

// Timing holds the wall-clock measurements for one operation.
type Timing struct {
	Reps   int
	Total  time.Duration
	PerRep []time.Duration
}

// Measure runs op warmups times untimed (to absorb first-call effects
// such as file-system caching), then reps times under the clock. Any
// error aborts the measurement immediately.
func Measure(op Op, reps, warmups int) (*Timing, error) {
	if reps <= 0 {
		return nil, fmt.Errorf("measure: reps must be positive, got %d", reps)
	}

	for i := 0; i < warmups; i++ {
		if err := op(); err != nil {
			return nil, fmt.Errorf("warmup %d: %w", i+1, err)
		}
	}

	t := &Timing{
		Reps:   reps,
		PerRep: make([]time.Duration, 0, reps),
	}

	for i := 0; i < reps; i++ {
		start := time.Now()

		if err := op(); err != nil {
			return nil, fmt.Errorf("rep %d: %w", i+1, err)
		}

		d := time.Since(start)
		t.PerRep = append(t.PerRep, d)
		t.Total += d
	}

	return t, nil
}

// TimePerByte returns seconds spent per transferred byte across the
// whole measurement: total / (bytes * reps).
func (t *Timing) TimePerByte(bytes int64) float64 {
	if bytes <= 0 || t.Reps == 0 {
		return 0
	}

	return t.Total.Seconds() / (float64(bytes) * float64(t.Reps))
}

// Mean returns the mean per-rep latency in milliseconds.
func (t *Timing) Mean() float64 {
	m, err := stats.Mean(t.latencies())
	if err != nil {
		return 0
	}

	return m
}

// P99 returns the 99th-percentile per-rep latency in milliseconds.
func (t *Timing) P99() float64 {
	p, err := stats.Percentile(t.latencies(), 99)
	if err != nil {
		return 0
	}

	return p
}

func (t *Timing) latencies() []float64 {
	data := make([]float64, len(t.PerRep))
	for i, d := range t.PerRep {
		data[i] = float64(d.Microseconds()) / 1000.0
	}

	return data
}
