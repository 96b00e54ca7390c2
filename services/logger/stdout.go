// Package logsvc provides core.Logger implementations: a plain stdout
// logger for dev/test and a rollbar-backed logger for deployed envs.
package logsvc

import (
	"log"
	"os"

	"github.com/somaedu/soma-backend/core"
)

type StdLogger struct {
	std      *log.Logger
	debug    bool
	disabled bool
}

var _ core.Logger = (*StdLogger)(nil)

func NewStdLogger(conf *core.Config) *StdLogger {
	return &StdLogger{
		std:   log.New(os.Stdout, conf.AppName+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		debug: conf.Debug,
	}
}

func (l *StdLogger) Enable(enabled bool) {
	l.disabled = !enabled
}

func (l *StdLogger) Debug(msg string, args ...interface{}) {
	if !l.debug || l.disabled {
		return
	}
	l.print("DEBUG: "+msg, args)
}

func (l *StdLogger) Info(msg string, args ...interface{}) {
	if l.disabled {
		return
	}
	l.print("INFO: "+msg, args)
}

func (l *StdLogger) Error(msg string, args ...interface{}) {
	if l.disabled {
		return
	}
	l.print("ERROR: "+msg, args)
}

func (l *StdLogger) print(msg string, args []interface{}) {
	_ = l.std.Output(3, msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}
