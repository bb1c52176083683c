package game

import (
	"time"
)

// TimerState is the lifecycle of a QuestionTimer.
type TimerState string

const (
	TimerStopped TimerState = "stopped"
	TimerRunning TimerState = "running"
	TimerPaused  TimerState = "paused"
	TimerExpired TimerState = "expired"
)

// QuestionTimer counts down whole seconds on a Loop.
//
// The timer keeps the part of the current second that had already elapsed when
// it was paused, so a pause/resume cycle neither drops nor repeats a second.
type QuestionTimer struct {
	loop      Loop
	limit     int
	remaining int
	state     TimerState

	secondStart time.Time     // when the in-progress second started counting
	carry       time.Duration // elapsed part of the in-progress second while paused
	cancelTick  func()

	onTick   func(remaining int)
	onExpire func()
}

// NewQuestionTimer creates a stopped timer. onTick runs after every decrement
// that does not expire the timer; onExpire runs once when it reaches zero.
func NewQuestionTimer(loop Loop, onTick func(remaining int), onExpire func()) *QuestionTimer {
	return &QuestionTimer{
		loop:     loop,
		state:    TimerStopped,
		onTick:   onTick,
		onExpire: onExpire,
	}
}

// Start (re)starts the countdown at limitSeconds, discarding any previous run.
func (t *QuestionTimer) Start(limitSeconds int) {
	t.disarm()
	t.limit = limitSeconds
	t.remaining = limitSeconds
	t.carry = 0
	t.state = TimerRunning
	t.arm(time.Second)
}

// Pause freezes the countdown. Only a running timer can be paused.
func (t *QuestionTimer) Pause() {
	if t.state != TimerRunning {
		return
	}
	t.disarm()
	t.carry = t.loop.Now().Sub(t.secondStart)
	if t.carry < 0 {
		t.carry = 0
	}
	if t.carry >= time.Second {
		t.carry = time.Second - time.Nanosecond
	}
	t.state = TimerPaused
}

// Resume continues from the exact remaining value.
func (t *QuestionTimer) Resume() {
	if t.state != TimerPaused {
		return
	}
	t.state = TimerRunning
	t.arm(time.Second - t.carry)
	t.carry = 0
}

// Cancel stops the timer for good without firing expiry.
func (t *QuestionTimer) Cancel() {
	t.disarm()
	if t.state != TimerExpired {
		t.state = TimerStopped
	}
}

// Remaining is the number of whole seconds left.
func (t *QuestionTimer) Remaining() int {
	return t.remaining
}

// Limit is the value the countdown started from.
func (t *QuestionTimer) Limit() int {
	return t.limit
}

func (t *QuestionTimer) State() TimerState {
	return t.state
}

func (t *QuestionTimer) arm(d time.Duration) {
	t.secondStart = t.loop.Now().Add(d - time.Second)
	t.cancelTick = t.loop.After(d, t.tick)
}

func (t *QuestionTimer) disarm() {
	if t.cancelTick != nil {
		t.cancelTick()
		t.cancelTick = nil
	}
}

func (t *QuestionTimer) tick() {
	t.cancelTick = nil
	if t.state != TimerRunning {
		return
	}
	t.remaining--
	if t.remaining <= 0 {
		t.remaining = 0
		t.state = TimerExpired
		if t.onExpire != nil {
			t.onExpire()
		}
		return
	}
	t.arm(time.Second)
	if t.onTick != nil {
		t.onTick(t.remaining)
	}
}
