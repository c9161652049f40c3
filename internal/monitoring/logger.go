// Package monitoring holds the process-wide diagnostic loggers.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Tracef is the high-frequency trace logger used on the per-frame path. It is
// a no-op unless enabled with SetTrace; the frame loop runs at camera rate and
// would flood the ops log.
var Tracef func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetTrace enables or disables per-frame trace logging. When enabled, traces
// go through the current Logf destination.
func SetTrace(enabled bool) {
	if !enabled {
		Tracef = func(string, ...interface{}) {}
		return
	}
	Tracef = func(format string, v ...interface{}) {
		Logf("[trace] "+format, v...)
	}
}
