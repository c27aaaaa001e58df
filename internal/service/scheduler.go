package service

import (
	"sort"
	"sync"
	"time"
)

// Timer is the part of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// AfterFunc starts a timer that runs f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type deletionTask struct {
	timer Timer
}

// DeletionScheduler runs one deferred task per channel. Scheduling a channel
// again replaces its pending task; Stop cancels everything.
type DeletionScheduler struct {
	mu      sync.Mutex
	after   AfterFunc
	pending map[string]*deletionTask
	stopped bool
}

// NewDeletionScheduler creates a scheduler. after may be nil to use real
// timers.
func NewDeletionScheduler(after AfterFunc) *DeletionScheduler {
	if after == nil {
		after = realAfterFunc
	}
	return &DeletionScheduler{after: after, pending: map[string]*deletionTask{}}
}

// Schedule runs f for channelID after delay. It returns false once the
// scheduler is stopped.
func (s *DeletionScheduler) Schedule(channelID string, delay time.Duration, f func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if prev, ok := s.pending[channelID]; ok {
		prev.timer.Stop()
	}
	task := &deletionTask{}
	task.timer = s.after(delay, func() {
		s.mu.Lock()
		current := s.pending[channelID]
		if current != task {
			s.mu.Unlock()
			return
		}
		delete(s.pending, channelID)
		s.mu.Unlock()
		f()
	})
	s.pending[channelID] = task
	return true
}

// Cancel drops the pending task for channelID.
func (s *DeletionScheduler) Cancel(channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.pending[channelID]
	if !ok {
		return false
	}
	task.timer.Stop()
	delete(s.pending, channelID)
	return true
}

// Pending lists channels with a scheduled task.
func (s *DeletionScheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.pending))
	for id := range s.pending {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Stop cancels all pending tasks and refuses new ones.
func (s *DeletionScheduler) Stop() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	n := len(s.pending)
	for id, task := range s.pending {
		task.timer.Stop()
		delete(s.pending, id)
	}
	return n
}
