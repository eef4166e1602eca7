package courier

import (
	"time"

	. "github.com/warpfork/go-errcat"
)

/*
	Monitor carries optional callbacks for observing long-ish operations
	(index fetches, tag walks).

	A zero Monitor is valid and silences everything.
	If Chan is set, the caller must keep draining it for as long as the
	operation runs; courier never closes a channel it was handed.
*/
type Monitor struct {
	Chan chan<- Event
}

// Event is a union: exactly one of the fields is set.
type Event struct {
	Log    *Event_Log
	Result *Event_Result
}

type Event_Log struct {
	Time   time.Time
	Level  LogLevel
	Msg    string
	Detail [][2]string
}

type LogLevel int8

const (
	LogError LogLevel = 4
	LogWarn  LogLevel = 3
	LogInfo  LogLevel = 2
	LogDebug LogLevel = 1
)

func (l LogLevel) String() string {
	switch l {
	case LogError:
		return "error"
	case LogWarn:
		return "warn"
	case LogInfo:
		return "info"
	case LogDebug:
		return "debug"
	default:
		return "?"
	}
}

/*
	Event_Result is the final message of a CLI invocation.

	Value holds whatever the command computed (a locator string, a list of
	url groups, ...) and is only meaningful when Error is nil.
*/
type Event_Result struct {
	Value interface{} `refmt:"value,omitempty"`
	Error *ErrorInfo  `refmt:"error,omitempty"`
}

// ErrorInfo is the serializable face of an errcat error.
type ErrorInfo struct {
	Category ErrorCategory     `refmt:"category"`
	Message  string            `refmt:"message"`
	Details  map[string]string `refmt:"details,omitempty"`
}

func (e *ErrorInfo) Error() string {
	return string(e.Category) + ": " + e.Message
}

func (r *Event_Result) SetError(err error) {
	if err == nil {
		r.Error = nil
		return
	}
	info := &ErrorInfo{Message: err.Error()}
	switch cat := Category(err).(type) {
	case ErrorCategory:
		info.Category = cat
	default:
		info.Category = ErrInternal
	}
	if e2, ok := err.(Error); ok {
		info.Message = e2.Message()
		info.Details = e2.Details()
	}
	r.Error = info
}
