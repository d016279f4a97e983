package state

import (
	"errors"
	"fmt"
	"sync"
)

// Status 房间的游戏状态
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusStarting Status = "starting"
	StatusQuestion Status = "question"
	StatusResults  Status = "results"
	StatusEnded    Status = "ended"
)

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// 状态机接口
type StateMachine interface {
	ChangeState(to Status) error
	Current() Status
	CanChange(to Status) bool
	AddTransition(from, to Status, condition func() bool)
}

// 基础状态机实现，只允许显式登记过的转换
type BaseStateMachine struct {
	current     Status
	transitions map[Status]map[Status]func() bool // fromState -> toState -> condition
	mutex       sync.RWMutex
}

func NewBaseStateMachine(initial Status) *BaseStateMachine {
	return &BaseStateMachine{
		current:     initial,
		transitions: make(map[Status]map[Status]func() bool),
	}
}

// NewRoomStateMachine returns a machine in waiting with the trivia round transitions:
// waiting -> starting -> question -> results -> (question | ended).
func NewRoomStateMachine() *BaseStateMachine {
	sm := NewBaseStateMachine(StatusWaiting)
	sm.AddTransition(StatusWaiting, StatusStarting, nil)
	sm.AddTransition(StatusStarting, StatusQuestion, nil)
	sm.AddTransition(StatusQuestion, StatusResults, nil)
	sm.AddTransition(StatusResults, StatusQuestion, nil)
	sm.AddTransition(StatusResults, StatusEnded, nil)
	return sm
}

func (sm *BaseStateMachine) ChangeState(to Status) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if !sm.allowed(to) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, sm.current, to)
	}
	sm.current = to
	return nil
}

func (sm *BaseStateMachine) CanChange(to Status) bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.allowed(to)
}

func (sm *BaseStateMachine) allowed(to Status) bool {
	conditions, exists := sm.transitions[sm.current]
	if !exists {
		return false
	}
	condition, exists := conditions[to]
	if !exists {
		return false
	}
	return condition == nil || condition()
}

func (sm *BaseStateMachine) Current() Status {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.current
}

func (sm *BaseStateMachine) AddTransition(from, to Status, condition func() bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[Status]func() bool)
	}
	sm.transitions[from][to] = condition
}

// Terminal reports whether no transition leaves the current state.
func (sm *BaseStateMachine) Terminal() bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return len(sm.transitions[sm.current]) == 0
}
