package rng

// Fixed replays a fixed list of draws, wrapping around at the end.
// It exists for reproducibility tests and hand-checked paths.
type Fixed struct {
	draws []float64
	next  int64
}

// NewFixed copies draws; an empty list yields zeros.
func NewFixed(draws ...float64) *Fixed {
	d := make([]float64, len(draws))
	copy(d, draws)
	return &Fixed{draws: d}
}

// Normal returns the next draw in the list
func (f *Fixed) Normal() float64 {
	if len(f.draws) == 0 {
		return 0
	}
	v := f.draws[f.next%int64(len(f.draws))]
	f.next++
	return v
}

// Drawn reports how many values have been handed out
func (f *Fixed) Drawn() int64 {
	return f.next
}

// FixedFactory gives each worker the same list advanced by skip draws, so a
// parallel run replays exactly the draws of the sequential run.
type FixedFactory struct {
	Draws []float64
}

// Stream returns a Fixed source positioned at skip
func (f FixedFactory) Stream(_ int, skip int64) Source {
	src := NewFixed(f.Draws...)
	src.next = skip
	return src
}
