// Package obslog is the consensus core's structured-logging seam. It wraps
// logrus the same way arvados-lightning's tilelib.go aliases the package to
// "log" and calls straight through to its package-level functions — there
// is exactly one logger for the whole process, and nothing in the core
// packages depends on its configuration.
package obslog

import (
	log "github.com/sirupsen/logrus"
)

func init() {
	log.SetLevel(log.InfoLevel)
}

// SetLevel adjusts the package-wide log level, e.g. to turn on debug/trace
// output; the core packages never call it themselves.
func SetLevel(level log.Level) {
	log.SetLevel(level)
}

// Debugf logs at debug level, used for additive/non-functional detail such
// as chemistry registration.
func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Warnf logs at warn level, used for the explicitly-tolerated
// atBegin-and-atEnd mutation-scoring fallback and similar "this is allowed
// but shouldn't happen often" conditions.
func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}
