package service

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of scheduling calls for the same key into a
// single execution of the latest action after a quiet window. A new call for
// a key supersedes the pending one, it never queues alongside it.
type Debouncer struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewDebouncer() *Debouncer {
	return &Debouncer{
		timers: make(map[string]*time.Timer),
	}
}

// Schedule arranges for action to run after window. A prior pending action
// for the same key is cancelled and replaced.
func (d *Debouncer) Schedule(key string, window time.Duration, action func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[key]; ok {
		timer.Stop()
	}

	d.timers[key] = time.AfterFunc(window, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		action()
	})
}

// Cancel drops the pending action for key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[key]; ok {
		timer.Stop()
		delete(d.timers, key)
	}
}

// Stop cancels everything; used on shutdown.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}
