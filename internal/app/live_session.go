package app

import (
	"sync"
	"time"

	"cemse-quiz/internal/domain"
	"cemse-quiz/internal/session"
)

// Listener receives events of a live session. Implementations must not block.
type Listener interface {
	Tick(remaining int)
	Submitting()
	Completed(res domain.Result)
	Cancelled()
}

// LiveSession is a server-hosted controller that transports can attach to and
// detach from, so a dropped connection can resume the same attempt.
type LiveSession struct {
	ctrl *session.Controller

	mu         sync.Mutex
	id         string
	listener   Listener
	detachedAt time.Time
}

// ID is the session id of the current attempt; it changes on retake.
func (l *LiveSession) ID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.id
}

func (l *LiveSession) setID(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.id = id
}

func (l *LiveSession) Controller() *session.Controller { return l.ctrl }

// Attach routes events to listener, replacing any previous one.
func (l *LiveSession) Attach(listener Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listener = listener
	l.detachedAt = time.Time{}
}

// Detach drops the listener if it is still the attached one.
func (l *LiveSession) Detach(listener Listener, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener != listener {
		return
	}
	l.listener = nil
	l.detachedAt = now
}

func (l *LiveSession) detachedSince() (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener != nil || l.detachedAt.IsZero() {
		return time.Time{}, false
	}
	return l.detachedAt, true
}

func (l *LiveSession) current() Listener {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listener
}

func (l *LiveSession) tick(remaining int) {
	if ln := l.current(); ln != nil {
		ln.Tick(remaining)
	}
}

func (l *LiveSession) submitting() {
	if ln := l.current(); ln != nil {
		ln.Submitting()
	}
}

func (l *LiveSession) completed(res domain.Result) {
	if ln := l.current(); ln != nil {
		ln.Completed(res)
	}
}

func (l *LiveSession) cancelled() {
	if ln := l.current(); ln != nil {
		ln.Cancelled()
	}
}
