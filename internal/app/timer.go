package app

import (
	"sync"
	"time"
)

// Timer is a cancellable periodic task. Stop is idempotent.
type Timer interface {
	Stop()
}

// Scheduler arms periodic tasks. Sessions use it for the question and global clocks.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Timer
}

// TickerScheduler runs callbacks on time.Ticker goroutines.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) Timer {
	t := &tickerTimer{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go t.loop(fn)
	return t
}

type tickerTimer struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *tickerTimer) loop(fn func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			// Stop may race with a pending tick; prefer done.
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

func (t *tickerTimer) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}
