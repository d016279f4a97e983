package timer

import (
	"sync"
	"time"
)

// Countdown runs at most one countdown per key. Every callback carries the
// generation returned by Start so the owner can ignore fires from a countdown
// that has since been cancelled or replaced.
type Countdown struct {
	scheduler Scheduler
	unit      time.Duration
	mutex     sync.Mutex
	running   map[string]*countdown
	nextGen   uint64
}

type countdown struct {
	gen       uint64
	timerId   int64
	remaining int
}

func NewCountdown(scheduler Scheduler, unit time.Duration) *Countdown {
	return &Countdown{
		scheduler: scheduler,
		unit:      unit,
		running:   make(map[string]*countdown),
	}
}

// Start counts down from units. onTick receives the remaining units after each
// elapsed unit; onExpire fires once, right after the tick that reaches zero.
// A countdown already running for key is cancelled first.
func (c *Countdown) Start(key string, units int, onTick func(gen uint64, remaining int), onExpire func(gen uint64)) uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cancelLocked(key)

	c.nextGen++
	gen := c.nextGen
	cd := &countdown{gen: gen, remaining: units}
	cd.timerId = c.scheduler.AddTimer(c.unit, c.unit, func() {
		c.fire(key, gen, onTick, onExpire)
	})
	c.running[key] = cd
	return gen
}

func (c *Countdown) fire(key string, gen uint64, onTick func(uint64, int), onExpire func(uint64)) {
	c.mutex.Lock()
	cd, ok := c.running[key]
	if !ok || cd.gen != gen {
		c.mutex.Unlock()
		return
	}
	cd.remaining--
	remaining := cd.remaining
	expired := remaining <= 0
	if expired {
		c.scheduler.RemoveTimer(cd.timerId)
		delete(c.running, key)
	}
	c.mutex.Unlock()

	if onTick != nil {
		onTick(gen, remaining)
	}
	if expired && onExpire != nil {
		onExpire(gen)
	}
}

// Cancel stops the countdown for key. It is a no-op when none is running.
func (c *Countdown) Cancel(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cancelLocked(key)
}

func (c *Countdown) cancelLocked(key string) {
	if cd, ok := c.running[key]; ok {
		c.scheduler.RemoveTimer(cd.timerId)
		delete(c.running, key)
	}
}

// Remaining returns the units left for key, or 0 when nothing runs.
func (c *Countdown) Remaining(key string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if cd, ok := c.running[key]; ok {
		return cd.remaining
	}
	return 0
}
