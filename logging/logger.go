package logging

import (
	log "github.com/sirupsen/logrus"
)

// DefaultLog provides a default implementation of the Logger interface,
// logging to the application log.
type DefaultLog struct{}

// Logger instances provide custom logging.
type Logger interface {

	// Log with level ERROR
	Error(...interface{})

	// Log formatted messages with level ERROR
	Errorf(string, ...interface{})

	// Log with level WARN
	Warn(...interface{})

	// Log formatted messages with level WARN
	Warnf(string, ...interface{})

	// Log with level INFO
	Info(...interface{})

	// Log formatted messages with level INFO
	Infof(string, ...interface{})

	// Log with level DEBUG
	Debug(...interface{})

	// Log formatted messages with level DEBUG
	Debugf(string, ...interface{})
}

func (dl *DefaultLog) Error(a ...interface{})            { log.Error(a...) }
func (dl *DefaultLog) Errorf(f string, a ...interface{}) { log.Errorf(f, a...) }
func (dl *DefaultLog) Warn(a ...interface{})             { log.Warn(a...) }
func (dl *DefaultLog) Warnf(f string, a ...interface{})  { log.Warnf(f, a...) }
func (dl *DefaultLog) Info(a ...interface{})             { log.Info(a...) }
func (dl *DefaultLog) Infof(f string, a ...interface{})  { log.Infof(f, a...) }
func (dl *DefaultLog) Debug(a ...interface{})            { log.Debug(a...) }
func (dl *DefaultLog) Debugf(f string, a ...interface{}) { log.Debugf(f, a...) }
