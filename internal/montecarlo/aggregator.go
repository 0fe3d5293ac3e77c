package montecarlo

import "math"

// Accumulator reduces undiscounted payoffs in one pass. Accumulators from
// separate workers combine with Merge.
type Accumulator struct {
	Count int64
	Sum   float64
	SumSq float64
}

// Estimate is the discounted statistics of a sample batch
type Estimate struct {
	Price  float64 `json:"price"`
	StdDev float64 `json:"std_dev"`
	StdErr float64 `json:"std_err"`
	Mean   float64 `json:"mean_payoff"`
	Paths  int64   `json:"paths"`
}

// Add records one payoff
func (a *Accumulator) Add(p float64) {
	a.Count++
	a.Sum += p
	a.SumSq += p * p
}

// Merge folds another accumulator into a
func (a *Accumulator) Merge(o Accumulator) {
	a.Count += o.Count
	a.Sum += o.Sum
	a.SumSq += o.SumSq
}

// Mean is the undiscounted sample mean
func (a Accumulator) Mean() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.Sum / float64(a.Count)
}

// Variance is the unbiased sample variance (Σp² - (Σp)²/N)/(N-1).
// A single sample has zero variance and cancellation never yields a negative one.
func (a Accumulator) Variance() float64 {
	if a.Count < 2 {
		return 0
	}
	n := float64(a.Count)
	v := (a.SumSq - a.Sum*a.Sum/n) / (n - 1)
	if v < 0 {
		return 0
	}
	return v
}

// Estimate discounts the statistics by discount = e^(-rT)
func (a Accumulator) Estimate(discount float64) Estimate {
	if a.Count == 0 {
		return Estimate{}
	}
	sd := discount * math.Sqrt(a.Variance())
	return Estimate{
		Price:  discount * a.Mean(),
		StdDev: sd,
		StdErr: sd / math.Sqrt(float64(a.Count)),
		Mean:   a.Mean(),
		Paths:  a.Count,
	}
}
