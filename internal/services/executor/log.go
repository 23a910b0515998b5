package executor

import (
	"fmt"
	"time"
)

// Log collects human-readable progress lines for one execution. It is local
// to a single task's run and is never shared across concurrent dispatches, so
// it needs no locking.
type Log struct {
	lines []string
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Appendf(format string, args ...interface{}) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format(time.RFC3339), fmt.Sprintf(format, args...))
	l.lines = append(l.lines, line)
}

func (l *Log) Lines() []string {
	return l.lines
}

func (l *Log) Len() int {
	return len(l.lines)
}
