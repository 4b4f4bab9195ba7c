package application

import (
	"errors"

	"github.com/example/session-scheduler/internal/persistence"
)

var (
	// ErrInvalidWindow is returned when a caller supplies a window whose end
	// does not come after its start. Rejected before any store access.
	ErrInvalidWindow = errors.New("application: window end must be after window start")
	// ErrEmptyMeetingCode is returned when materialization is requested with
	// a blank meeting code.
	ErrEmptyMeetingCode = errors.New("application: meeting code is empty")
	// ErrInvalidDay is returned when materialization is requested with an
	// unusable calendar day.
	ErrInvalidDay = errors.New("application: day is invalid")
	// ErrRunInProgress is returned when a reconciliation pass is requested
	// while another pass is still running.
	ErrRunInProgress = errors.New("application: reconciliation already running")
	// ErrStoreFault is returned when materialization exhausted its conflict
	// retries and the record still could not be read back.
	ErrStoreFault = errors.New("application: session store fault")
	// ErrLoopAlreadyStarted is returned when Start is called on a loop that
	// is already ticking.
	ErrLoopAlreadyStarted = errors.New("application: loop already started")
)

// ErrorKind maps sentinel errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrInvalidWindow):
		return "invalid_window"
	case errors.Is(err, ErrEmptyMeetingCode):
		return "empty_meeting_code"
	case errors.Is(err, ErrInvalidDay):
		return "invalid_day"
	case errors.Is(err, ErrRunInProgress):
		return "run_in_progress"
	case errors.Is(err, ErrStoreFault):
		return "store_fault"
	case errors.Is(err, persistence.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, persistence.ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

// IsCallerError reports whether the error is a synchronous caller mistake
// rather than a runtime fault. Caller errors are never retried.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrInvalidWindow) ||
		errors.Is(err, ErrEmptyMeetingCode) ||
		errors.Is(err, ErrInvalidDay)
}
