// Package monitoring holds the controller's diagnostic logger, its Prometheus
// metrics and the rolling per-street count statistics served by the API.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger so tests can capture or mute frame logging.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Sampler decides whether the n-th occurrence of a chatty log line should be
// written. A Sampler with Every <= 1 lets every line through.
type Sampler struct {
	Every int
	seen  int
}

// Allow records one occurrence and reports whether it should be logged.
func (s *Sampler) Allow() bool {
	s.seen++
	if s.Every <= 1 {
		return true
	}
	return s.seen%s.Every == 1
}
