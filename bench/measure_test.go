package bench

import (
	"errors"
	"testing"
	"time"
)

func TestMeasureInvokesOpExactly(t *testing.T) {
	calls := 0
	op := func() error {
		calls++

		return nil
	}

	timing, err := Measure(op, 5, 2)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}

	if calls != 7 {
		t.Errorf("op called %d times, want 7", calls)
	}

	if timing.Reps != 5 {
		t.Errorf("reps = %d, want 5", timing.Reps)
	}

	if len(timing.PerRep) != 5 {
		t.Errorf("recorded %d per-rep durations, want 5", len(timing.PerRep))
	}

	if timing.Total < 0 {
		t.Errorf("total = %v, want non-negative", timing.Total)
	}
}

func TestMeasureTotalIsSumOfReps(t *testing.T) {
	op := func() error {
		time.Sleep(time.Millisecond)

		return nil
	}

	timing, err := Measure(op, 3, 0)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}

	var sum time.Duration
	for _, d := range timing.PerRep {
		sum += d
	}

	if sum != timing.Total {
		t.Errorf("total = %v, sum of reps = %v", timing.Total, sum)
	}
}

func TestMeasureMonotonicInReps(t *testing.T) {
	op := func() error {
		time.Sleep(time.Millisecond)

		return nil
	}

	small, err := Measure(op, 1, 0)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}

	large, err := Measure(op, 5, 0)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}

	if large.Total < small.Total {
		t.Errorf("total(5) = %v < total(1) = %v", large.Total, small.Total)
	}
}

func TestMeasureZeroReps(t *testing.T) {
	op := func() error { return nil }

	if _, err := Measure(op, 0, 0); err == nil {
		t.Error("expected error for zero reps")
	}
}

func TestMeasureWarmupError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	op := func() error {
		calls++

		return boom
	}

	_, err := Measure(op, 5, 2)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	if calls != 1 {
		t.Errorf("op called %d times after warmup failure, want 1", calls)
	}
}

func TestMeasureRepError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	op := func() error {
		calls++
		if calls == 4 {
			return boom
		}

		return nil
	}

	_, err := Measure(op, 5, 2)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	if calls != 4 {
		t.Errorf("op called %d times, want 4 (stop at first failure)", calls)
	}
}

func TestTimePerByte(t *testing.T) {
	timing := &Timing{
		Reps:  10,
		Total: time.Second,
	}

	got := timing.TimePerByte(100)
	want := 1.0 / (100 * 10)

	if got != want {
		t.Errorf("TimePerByte = %v, want %v", got, want)
	}

	if timing.TimePerByte(0) != 0 {
		t.Error("TimePerByte(0) should be 0")
	}
}

func TestTimingStats(t *testing.T) {
	timing := &Timing{
		Reps: 4,
		PerRep: []time.Duration{
			time.Millisecond,
			2 * time.Millisecond,
			3 * time.Millisecond,
			4 * time.Millisecond,
		},
	}

	mean := timing.Mean()
	if mean < 2.4 || mean > 2.6 {
		t.Errorf("mean = %v ms, want 2.5", mean)
	}

	p99 := timing.P99()
	if p99 < mean {
		t.Errorf("p99 = %v ms < mean %v ms", p99, mean)
	}
}
