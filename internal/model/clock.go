package model

import "time"

// Clock supplies the current time to stores and timers
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface
type ClockFunc func() time.Time

func (fn ClockFunc) Now() time.Time {
	return fn()
}

// LocalTime is the wall clock
var LocalTime Clock = ClockFunc(time.Now)
