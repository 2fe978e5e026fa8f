package auth

import (
	"sync"
	"time"
)

// Scheduler runs fn every interval until the returned cancel function is
// called. Every must not call fn before returning, and cancel must not wait
// for a running fn to return.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func())
}

// TickerScheduler is a Scheduler backed by time.Ticker.
type TickerScheduler struct{}

// Every starts a ticker goroutine.
func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
