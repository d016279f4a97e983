package timer

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler is a Scheduler whose clock only moves when Advance is called.
// Callbacks run synchronously on the goroutine calling Advance, in due order.
type ManualScheduler struct {
	mutex  sync.Mutex
	now    time.Duration
	nextId int64
	tasks  map[int64]*manualTask
}

type manualTask struct {
	id       int64
	at       time.Duration
	interval time.Duration
	callback func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		nextId: 1,
		tasks:  make(map[int64]*manualTask),
	}
}

func (s *ManualScheduler) AddTimer(delay time.Duration, interval time.Duration, callback func()) int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := s.nextId
	s.nextId++
	s.tasks[id] = &manualTask{id: id, at: s.now + delay, interval: interval, callback: callback}
	return id
}

func (s *ManualScheduler) RemoveTimer(timerId int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.tasks, timerId)
}

// Pending returns the number of scheduled tasks.
func (s *ManualScheduler) Pending() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.tasks)
}

// Advance moves the clock forward by d, firing every task that becomes due.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mutex.Lock()
	target := s.now + d
	s.mutex.Unlock()

	for {
		callback, ok := s.next(target)
		if !ok {
			return
		}
		callback()
	}
}

func (s *ManualScheduler) next(target time.Duration) (func(), bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var due []*manualTask
	for _, task := range s.tasks {
		if task.at <= target {
			due = append(due, task)
		}
	}
	if len(due) == 0 {
		s.now = target
		return nil, false
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at == due[j].at {
			return due[i].id < due[j].id
		}
		return due[i].at < due[j].at
	})

	task := due[0]
	s.now = task.at
	if task.interval > 0 {
		task.at += task.interval
	} else {
		delete(s.tasks, task.id)
	}
	return task.callback, true
}
