package game

import (
	"time"
)

// Fixed answer resolution delays.
const (
	RevealDelay = 1000 * time.Millisecond
	NotifyDelay = 1500 * time.Millisecond
)

// tickWarningSeconds is the remaining time at which the tick cue starts.
const tickWarningSeconds = 10

// Outcome is reported once per round.
type Outcome struct {
	Correct  bool
	TimedOut bool
	Selected int // -1 when the round timed out
}

// Round is the lifecycle of one question: lock, reveal, notify, or timeout.
// All methods must be called on the session loop.
type Round struct {
	loop     Loop
	audio    Audio
	question Question
	timer    *QuestionTimer

	phase      AnswerPhase
	selected   int
	removed    []int
	audience   *[OptionCount]int
	friendHint string
	displayed  Effect

	cancelReveal func()
	cancelNotify func()
	notified     bool
	closed       bool

	onOutcome func(Outcome)
	onChange  func()
}

func newRound(loop Loop, audio Audio, q Question, onOutcome func(Outcome), onChange func()) *Round {
	r := &Round{
		loop:      loop,
		audio:     audio,
		question:  q,
		phase:     PhaseIdle,
		selected:  -1,
		onOutcome: onOutcome,
		onChange:  onChange,
	}
	r.timer = NewQuestionTimer(loop, r.tick, r.timeout)
	return r
}

// Phase is the current answer phase.
func (r *Round) Phase() AnswerPhase {
	return r.phase
}

// Selected is the locked option, or -1.
func (r *Round) Selected() int {
	return r.selected
}

// Removed returns the option indexes hidden by the cut lifeline.
func (r *Round) Removed() []int {
	return append([]int(nil), r.removed...)
}

// Timer exposes the countdown for inspection.
func (r *Round) Timer() *QuestionTimer {
	return r.timer
}

func (r *Round) start(limitSeconds int) {
	r.timer.Start(limitSeconds)
}

func (r *Round) selectOption(index int) error {
	switch {
	case r.closed:
		return ErrRoundClosed
	case r.phase != PhaseIdle || r.selected >= 0:
		return ErrAnswerLocked
	case r.displayed != nil:
		return ErrLifelineDisplayed
	case index < 0 || index >= OptionCount:
		return ErrInvalidOption
	case r.isRemoved(index):
		return ErrOptionRemoved
	}

	r.timer.Pause()
	r.selected = index
	r.phase = PhaseLocked
	r.audio.Play(CueClick, false)
	r.cancelReveal = r.loop.After(RevealDelay, r.reveal)
	r.changed()
	return nil
}

func (r *Round) reveal() {
	r.cancelReveal = nil
	if r.closed || r.phase != PhaseLocked {
		return
	}
	if r.selected == r.question.CorrectIndex {
		r.phase = PhaseRevealedCorrect
		r.audio.Play(CueCorrect, false)
	} else {
		r.phase = PhaseRevealedWrong
		r.audio.Play(CueWrong, false)
	}
	r.cancelNotify = r.loop.After(NotifyDelay, r.notify)
	r.changed()
}

func (r *Round) notify() {
	r.cancelNotify = nil
	if r.closed {
		return
	}
	r.deliver(Outcome{Correct: r.phase == PhaseRevealedCorrect, Selected: r.selected})
}

// timeout is the timer's expiry hook. It only counts while nothing is locked in.
func (r *Round) timeout() {
	if r.closed || r.phase != PhaseIdle {
		return
	}
	r.deliver(Outcome{TimedOut: true, Selected: -1})
}

func (r *Round) tick(remaining int) {
	if remaining <= tickWarningSeconds && remaining > 0 {
		r.audio.Play(CueTick, false)
	}
	r.changed()
}

func (r *Round) deliver(o Outcome) {
	if r.notified {
		return
	}
	r.notified = true
	r.timer.Cancel()
	r.onOutcome(o)
}

func (r *Round) canUseLifeline() error {
	switch {
	case r.closed:
		return ErrRoundClosed
	case r.phase != PhaseIdle || r.selected >= 0:
		return ErrAnswerLocked
	case r.displayed != nil:
		return ErrLifelineDisplayed
	}
	return nil
}

// display shows an effect without applying it and holds the countdown.
func (r *Round) display(e Effect) {
	r.displayed = e
	r.timer.Pause()
	r.changed()
}

// dismiss applies the displayed effect and resumes the countdown.
func (r *Round) dismiss() error {
	if r.closed {
		return ErrRoundClosed
	}
	if r.displayed == nil {
		return ErrNoLifelineShown
	}
	switch e := r.displayed.(type) {
	case CutEffect:
		r.removed = e.Removed[:]
	case AudienceEffect:
		votes := e.Votes
		r.audience = &votes
	case FriendEffect:
		r.friendHint = e.Hint
	}
	r.displayed = nil
	r.timer.Resume()
	r.changed()
	return nil
}

// close cancels every pending callback of the round.
func (r *Round) close() {
	r.closed = true
	if r.cancelReveal != nil {
		r.cancelReveal()
		r.cancelReveal = nil
	}
	if r.cancelNotify != nil {
		r.cancelNotify()
		r.cancelNotify = nil
	}
	r.timer.Cancel()
}

func (r *Round) isRemoved(index int) bool {
	for _, i := range r.removed {
		if i == index {
			return true
		}
	}
	return false
}

func (r *Round) changed() {
	if r.onChange != nil && !r.closed {
		r.onChange()
	}
}

// Snapshot returns the render state of the round.
func (r *Round) Snapshot() RoundSnapshot {
	s := RoundSnapshot{
		Text:          r.question.Text,
		Options:       r.question.Options,
		Difficulty:    r.question.Difficulty,
		Category:      r.question.Category,
		Phase:         r.phase,
		Removed:       r.Removed(),
		FriendHint:    r.friendHint,
		TimeRemaining: r.timer.Remaining(),
		TimeLimit:     r.timer.Limit(),
		TimerState:    r.timer.State(),
	}
	if r.selected >= 0 {
		sel := r.selected
		s.Selected = &sel
	}
	if r.phase == PhaseRevealedCorrect || r.phase == PhaseRevealedWrong {
		correct := r.question.CorrectIndex
		s.CorrectIndex = &correct
	}
	if r.audience != nil {
		votes := *r.audience
		s.AudienceVotes = &votes
	}
	if r.displayed != nil {
		s.Displayed = &DisplayedLifeline{Kind: r.displayed.Kind(), Effect: r.displayed}
	}
	return s
}
