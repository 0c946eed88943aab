// Package hooks holds logrus hooks shared by the flowsched binaries.
package hooks

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// contextHook annotates every entry with the file:line of the log
// callsite, skipping logrus and hook frames.
type contextHook struct {
}

func NewContextHook() contextHook {
	return contextHook{}
}

func (hook contextHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook contextHook) Fire(entry *logrus.Entry) error {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(4, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "sirupsen/logrus") &&
			!strings.Contains(frame.File, "context_hook.go") {
			file := frame.File
			if i := strings.LastIndex(file, "flowsched/"); i >= 0 {
				file = file[i+len("flowsched/"):]
			}
			entry.Data["file:line"] = fmt.Sprintf("%s:%d", file, frame.Line)
			return nil
		}
		if !more {
			return nil
		}
	}
}
