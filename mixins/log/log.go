/*
	Helper functions for emitting structured logs to the courier.Monitor.

	These cover the lifecycle events of input expansion, so every caller
	formats them the same way.  Anything else can write raw events; the
	message is freetext.
*/
package log

import (
	"fmt"
	"strconv"
	"time"

	"github.com/polydawn/courier"
)

func emit(mon courier.Monitor, level courier.LogLevel, msg string, detail ...[2]string) {
	if mon.Chan == nil {
		return
	}
	mon.Chan <- courier.Event{
		Log: &courier.Event_Log{
			Time:   time.Now(),
			Level:  level,
			Msg:    msg,
			Detail: detail,
		},
	}
}

func IndexFetched(mon courier.Monitor, dir string, from string, entries int) {
	emit(mon, courier.LogInfo,
		fmt.Sprintf("read directory index with %d entries", entries),
		[2]string{"dir", dir},
		[2]string{"from", from},
		[2]string{"entries", strconv.Itoa(entries)},
	)
}

// Typically called with a transient error; the caller decides whether another replica is worth trying.
func IndexUnavailable(mon courier.Monitor, err error, dir string) {
	emit(mon, courier.LogWarn,
		fmt.Sprintf("directory index unavailable: %s", err),
		[2]string{"dir", dir},
		[2]string{"error", err.Error()},
	)
}

func TagExpanded(mon courier.Monitor, tag string, blobs int) {
	emit(mon, courier.LogInfo,
		fmt.Sprintf("expanded tag %q to %d blobs", tag, blobs),
		[2]string{"tag", tag},
		[2]string{"blobs", strconv.Itoa(blobs)},
	)
}

func TagSkipped(mon courier.Monitor, tag string, reason string) {
	emit(mon, courier.LogDebug,
		fmt.Sprintf("skipped tag %q: %s", tag, reason),
		[2]string{"tag", tag},
	)
}
