package stream

import "time"

// Timer is a monotonic microsecond clock.
type Timer interface {
	Micros() int64
}

// MonotonicTimer counts microseconds since it was created.
type MonotonicTimer struct {
	start time.Time
}

func NewMonotonicTimer() *MonotonicTimer {
	return &MonotonicTimer{start: time.Now()}
}

func (t *MonotonicTimer) Micros() int64 {
	return time.Since(t.start).Microseconds()
}
