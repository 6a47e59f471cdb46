package common

import (
	"time"
)

// This stopwatch keeps track of time. You can set a timeout for it,
// make it start counting time, and ask it if the timeout has been reached
type Stopwatch struct {
	Timeout   time.Duration
	startTime time.Time
	Running   bool
	now       func() time.Time
}

func NewStopwatch(timeout time.Duration) Stopwatch {
	return Stopwatch{Timeout: timeout, now: time.Now}
}

func (s *Stopwatch) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *Stopwatch) Start() {
	s.Running = true
	s.startTime = s.clock()
}

func (s *Stopwatch) Stop() {
	s.Running = false
}

// Stopped reports whether the timeout has been reached, together with the
// time still left before it is. A stopwatch that was never started counts
// as stopped.
func (s *Stopwatch) Stopped() (bool, time.Duration) {
	if !s.Running {
		return true, 0
	}
	remaining := s.startTime.Add(s.Timeout).Sub(s.clock())
	if remaining <= 0 {
		return true, 0
	}
	return false, remaining
}
