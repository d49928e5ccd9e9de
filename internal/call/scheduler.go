package call

import "time"

// Timer is a pending scheduled task
type Timer interface {
	// Stop cancels the task; it reports false if the task already ran or was stopped
	Stop() bool
}

// Scheduler runs f once after d on its own goroutine
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler schedules tasks on the runtime timer heap
var SystemScheduler Scheduler = systemScheduler{}
