package logger

import (
	"io"
	"log"
)

// StdLogger is a lightweight implementation backed by Go's log package.
type StdLogger struct {
	verbose bool
	out     *log.Logger
}

// NewStd creates a StdLogger writing to the standard logger.
func NewStd(verbose bool) *StdLogger {
	return &StdLogger{verbose: verbose, out: log.Default()}
}

// NewWriter creates a StdLogger that writes to w. Used by tests and the MCP
// server, whose stdout belongs to the protocol.
func NewWriter(w io.Writer, verbose bool) *StdLogger {
	return &StdLogger{verbose: verbose, out: log.New(w, "tasq ", log.LstdFlags)}
}

func (l *StdLogger) Debug(msg string, fields map[string]interface{}) {
	if !l.verbose {
		return
	}
	l.out.Println("[DEBUG]", msg, fields)
}

func (l *StdLogger) Info(msg string, fields map[string]interface{}) {
	if !l.verbose {
		return
	}
	l.out.Println("[INFO]", msg, fields)
}

func (l *StdLogger) Warn(msg string, fields map[string]interface{}) {
	if !l.verbose {
		return
	}
	l.out.Println("[WARN]", msg, fields)
}

func (l *StdLogger) Error(msg string, err error, fields map[string]interface{}) {
	if !l.verbose {
		return
	}
	l.out.Println("[ERROR]", msg, err, fields)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(string, map[string]interface{})        {}
func (Nop) Info(string, map[string]interface{})         {}
func (Nop) Warn(string, map[string]interface{})         {}
func (Nop) Error(string, error, map[string]interface{}) {}
