package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned by Stop on a scheduler that never started
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrRunInProgress is returned when a batch run is requested while one is in flight
	ErrRunInProgress = errors.New("batch run already in progress")

	// ErrInvalidConfig is returned when the interval or timeout is unusable
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
