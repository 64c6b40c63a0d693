package worker

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// debugOut traces job assignment and worker lifecycle. It stays nil unless
// OFFICEBOT_WORKER_DEBUG parses as a true bool.
var debugOut = newDebugLogger(os.Getenv("OFFICEBOT_WORKER_DEBUG"))

func newDebugLogger(flag string) *log.Logger {
	on, err := strconv.ParseBool(strings.TrimSpace(flag))
	if err != nil || !on {
		return nil
	}
	return log.New(log.Writer(), "[officebot-worker] ", log.LstdFlags|log.Lmicroseconds)
}

func debugLog(format string, args ...any) {
	if debugOut != nil {
		debugOut.Printf(format, args...)
	}
}
