// Package progress carries the advisory "where is the scan now" signal from
// discovery workers to a console reporter.
package progress

import (
	"sync"
	"time"
)

// Cell holds the most recently observed directory. The zero value is ready
// to use and safe for concurrent use.
type Cell struct {
	mu    sync.Mutex
	value string
	set   bool
}

// Set replaces the stored value.
func (c *Cell) Set(value string) {
	c.mu.Lock()
	c.value = value
	c.set = true
	c.mu.Unlock()
}

// Get returns the stored value and whether anything was stored yet.
func (c *Cell) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set
}

// Report polls cell every interval and calls emit whenever the value differs
// from the last one emitted. The returned stop function halts polling and
// waits for the reporter goroutine to exit.
func Report(cell *Cell, interval time.Duration, emit func(string)) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last string
		var emitted bool
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				current, ok := cell.Get()
				if !ok || (emitted && current == last) {
					continue
				}
				emit(current)
				last, emitted = current, true
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
