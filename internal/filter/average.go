// Package filter smooths integer samples over a fixed window.
package filter

// RunningAverage is a fixed-capacity ring of samples whose mean is kept
// incrementally. It is not safe for concurrent use.
//
// A nil *RunningAverage is valid and passes every sample through unchanged.
type RunningAverage struct {
	values []int
	size   int
	index  int
	count  int
	sum    int
}

// New allocates a zeroed filter holding the last size samples. It returns nil
// when size is not positive; callers treat a nil filter as pass-through.
func New(size int) *RunningAverage {
	if size <= 0 {
		return nil
	}
	return &RunningAverage{
		values: make([]int, size),
		size:   size,
	}
}

// Run records value and returns the integer mean of the samples in the window.
func (f *RunningAverage) Run(value int) int {
	if f == nil || f.values == nil {
		return value
	}
	f.sum -= f.values[f.index]
	f.values[f.index] = value
	f.sum += value
	f.index = (f.index + 1) % f.size
	if f.count < f.size {
		f.count++
	}
	return f.sum / f.count
}

// Len returns the number of samples currently in the window.
func (f *RunningAverage) Len() int {
	if f == nil {
		return 0
	}
	return f.count
}

// Cap returns the window size.
func (f *RunningAverage) Cap() int {
	if f == nil {
		return 0
	}
	return f.size
}

// Sum returns the total of the samples currently in the window.
func (f *RunningAverage) Sum() int {
	if f == nil {
		return 0
	}
	return f.sum
}

// Reset empties the window without releasing the ring.
func (f *RunningAverage) Reset() {
	if f == nil {
		return
	}
	for i := range f.values {
		f.values[i] = 0
	}
	f.index = 0
	f.count = 0
	f.sum = 0
}
