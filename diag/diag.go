// Package diag reports broken runtime invariants: fatal while developing,
// logged and counted in release so the caller can fall back.
package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lixenwraith/pursuit/status"
)

// AssertionError is the panic value raised in fatal mode
type AssertionError struct {
	Msg     string
	Keyvals []any
}

func (e *AssertionError) Error() string {
	var b strings.Builder
	b.WriteString("assertion failed: ")
	b.WriteString(e.Msg)
	for i := 0; i+1 < len(e.Keyvals); i += 2 {
		fmt.Fprintf(&b, " %v=%v", e.Keyvals[i], e.Keyvals[i+1])
	}
	return b.String()
}

// Asserter checks invariants; a nil *Asserter logs nothing and never panics
type Asserter struct {
	logger *log.Logger
	fatal  bool
	reg    *status.Registry
}

// New creates an Asserter; fatal panics on failure after logging
func New(logger *log.Logger, fatal bool, reg *status.Registry) *Asserter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Asserter{logger: logger, fatal: fatal, reg: reg}
}

// Check returns ok; a false ok is logged, counted and, in fatal mode, panics
func (a *Asserter) Check(ok bool, msg string, keyvals ...any) bool {
	if ok || a == nil {
		return ok
	}
	a.reg.Inc(status.Assertions)
	a.logger.Error(msg, keyvals...)
	if a.fatal {
		panic(&AssertionError{Msg: msg, Keyvals: keyvals})
	}
	return false
}

// Fatal reports whether failures panic
func (a *Asserter) Fatal() bool {
	return a != nil && a.fatal
}

// Recover converts an assertion panic back into an error; other panics propagate
// Use as: defer diag.Recover(&err)
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if ae, ok := r.(*AssertionError); ok {
		*err = ae
		return
	}
	panic(r)
}
