// Package loggingtest provides a logger that records the entries, and
// lets tests wait for expected messages.
package loggingtest

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TestLogger implements logging.Logger, and records the entries in
// memory. The entries are also forwarded to the application log with
// level DEBUG.
type TestLogger struct {
	mu      sync.Mutex
	entries []string
	muted   bool
	closed  bool

	// closed and replaced on every new entry
	changed chan struct{}
}

var ErrWaitTimeout = errors.New("timeout")

func New() *TestLogger {
	return &TestLogger{changed: make(chan struct{})}
}

func (tl *TestLogger) save(e string) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.muted || tl.closed {
		return
	}

	logrus.Debug(e)
	tl.entries = append(tl.entries, e)
	close(tl.changed)
	tl.changed = make(chan struct{})
}

// expects the mutex locked
func (tl *TestLogger) countLocked(exp string) int {
	var n int
	for _, e := range tl.entries {
		if strings.Contains(e, exp) {
			n++
		}
	}

	return n
}

func (tl *TestLogger) logf(f string, a ...interface{}) {
	tl.save(fmt.Sprintf(f, a...))
}

func (tl *TestLogger) log(a ...interface{}) {
	tl.save(fmt.Sprint(a...))
}

// WaitForN blocks until n entries containing exp were logged, or until
// the timeout.
func (tl *TestLogger) WaitForN(exp string, n int, to time.Duration) error {
	timeout := time.NewTimer(to)
	defer timeout.Stop()

	for {
		tl.mu.Lock()
		found := tl.countLocked(exp)
		changed := tl.changed
		tl.mu.Unlock()

		if found >= n {
			return nil
		}

		select {
		case <-changed:
		case <-timeout.C:
			return ErrWaitTimeout
		}
	}
}

func (tl *TestLogger) WaitFor(exp string, to time.Duration) error {
	return tl.WaitForN(exp, 1, to)
}

// Count returns the number of entries containing expression.
func (tl *TestLogger) Count(expression string) int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.countLocked(expression)
}

func (tl *TestLogger) Reset() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.entries = nil
}

// Mute makes the logger drop the entries until Unmute is called.
func (tl *TestLogger) Mute() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.muted = true
}

func (tl *TestLogger) Unmute() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.muted = false
}

// Close makes the logger drop all the subsequent entries.
func (tl *TestLogger) Close() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.closed = true
}

func (tl *TestLogger) Error(a ...interface{})            { tl.log(a...) }
func (tl *TestLogger) Errorf(f string, a ...interface{}) { tl.logf(f, a...) }
func (tl *TestLogger) Warn(a ...interface{})             { tl.log(a...) }
func (tl *TestLogger) Warnf(f string, a ...interface{})  { tl.logf(f, a...) }
func (tl *TestLogger) Info(a ...interface{})             { tl.log(a...) }
func (tl *TestLogger) Infof(f string, a ...interface{})  { tl.logf(f, a...) }
func (tl *TestLogger) Debug(a ...interface{})            { tl.log(a...) }
func (tl *TestLogger) Debugf(f string, a ...interface{}) { tl.logf(f, a...) }
