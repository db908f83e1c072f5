package session

import (
	"sync"
	"time"
)

// Ticker delivers one value per elapsed second.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewTicker wraps time.NewTicker.
func NewTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// Timer counts down whole seconds and calls onExpire once when it reaches zero.
// It cannot be paused; Stop tears it down.
type Timer struct {
	mu        sync.Mutex
	remaining int
	ticker    Ticker
	done      chan struct{}
	stopOnce  sync.Once
}

// StartTimer begins the countdown in its own goroutine. onTick receives the seconds
// left after each tick.
func StartTimer(seconds int, ticker Ticker, onTick func(remaining int), onExpire func()) *Timer {
	t := &Timer{
		remaining: seconds,
		ticker:    ticker,
		done:      make(chan struct{}),
	}
	go t.run(onTick, onExpire)
	return t
}

func (t *Timer) run(onTick func(int), onExpire func()) {
	defer t.ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C():
		}

		t.mu.Lock()
		select {
		case <-t.done:
			t.mu.Unlock()
			return
		default:
		}
		if t.remaining > 0 {
			t.remaining--
		}
		left := t.remaining
		t.mu.Unlock()

		if onTick != nil {
			onTick(left)
		}
		if left == 0 {
			t.Stop()
			if onExpire != nil {
				onExpire()
			}
			return
		}
	}
}

// Remaining returns the whole seconds left.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Stop ends the countdown. Safe to call repeatedly and from onExpire.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		close(t.done)
		t.mu.Unlock()
	})
}

// Stopped reports whether the countdown has been torn down.
func (t *Timer) Stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
