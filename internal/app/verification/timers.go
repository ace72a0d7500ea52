package verification

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer the verifier needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// slot is a single-shot timer whose callback only runs if the slot was not
// re-armed or cancelled in the meantime.
type slot struct {
	name  string
	timer Timer
	gen   uint64
}

func (s *slot) armed() bool {
	return s.timer != nil
}

// arm must be called with mu held.
func (s *slot) arm(mu *sync.Mutex, after AfterFunc, d time.Duration, fn func()) {
	s.cancel()
	s.gen++
	gen := s.gen
	s.timer = after(d, func() {
		mu.Lock()
		if s.gen != gen || s.timer == nil {
			mu.Unlock()
			return
		}
		s.timer = nil
		mu.Unlock()
		fn()
	})
}

// cancel must be called with mu held.
func (s *slot) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}
