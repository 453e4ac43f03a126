package scheduling

import (
	"errors"
	"fmt"
)

// ErrNotSchedulable matches every ScheduleError.
var ErrNotSchedulable = errors.New("not schedulable")

// A ScheduleError reports why a composite cannot be scheduled. Where names
// the offending actor or port.
type ScheduleError struct {
	Where  string
	Reason string
	Err    error
}

func (e *ScheduleError) Error() string {
	msg := fmt.Sprintf("not schedulable: %s: %s", e.Where, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *ScheduleError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrNotSchedulable.
func (e *ScheduleError) Is(target error) bool {
	return target == ErrNotSchedulable
}

func notSchedulable(where string, err error, format string, args ...any) error {
	return &ScheduleError{
		Where:  where,
		Reason: fmt.Sprintf(format, args...),
		Err:    err,
	}
}
