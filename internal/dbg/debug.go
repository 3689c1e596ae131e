//go:build debug

package dbg

import (
	"fmt"
	stdlog "log"
	"os"
)

type stderrLogger struct {
	l *stdlog.Logger
}

func init() {
	log = &stderrLogger{l: stdlog.New(os.Stderr, "goba: ", stdlog.Lshortfile)}
}

func (s *stderrLogger) Printf(format string, a ...interface{}) {
	s.l.Output(3, fmt.Sprintf(format, a...))
}

func (s *stderrLogger) Println(a ...interface{}) {
	s.l.Output(3, fmt.Sprintln(a...))
}
