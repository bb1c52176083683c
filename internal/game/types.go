package game

import (
	"fmt"
	"strings"
)

// Question difficulty tags.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// OptionCount is the number of answer options every question carries.
const OptionCount = 4

var optionLetters = [OptionCount]string{"A", "B", "C", "D"}

// OptionLetter returns the display letter (A-D) for an option index.
func OptionLetter(index int) string {
	if index < 0 || index >= OptionCount {
		return "?"
	}
	return optionLetters[index]
}

// Question is immutable once handed to a session.
type Question struct {
	Text         string              `json:"text"`
	Options      [OptionCount]string `json:"options"`
	CorrectIndex int                 `json:"correct_index"`
	Difficulty   string              `json:"difficulty"`
	Category     string              `json:"category,omitempty"`
}

// Validate rejects questions the game cannot present.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: empty text", ErrInvalidQuestion)
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %s is empty", ErrInvalidQuestion, OptionLetter(i))
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= OptionCount {
		return fmt.Errorf("%w: correct index %d out of range", ErrInvalidQuestion, q.CorrectIndex)
	}
	return nil
}

// CorrectAnswer returns the text of the correct option.
func (q Question) CorrectAnswer() string {
	if q.CorrectIndex < 0 || q.CorrectIndex >= OptionCount {
		return ""
	}
	return q.Options[q.CorrectIndex]
}

// Screen is the top-level state of a session.
type Screen string

const (
	ScreenSplash           Screen = "splash"
	ScreenDifficultySelect Screen = "difficulty_select"
	ScreenPlaying          Screen = "playing"
	ScreenGameOver         Screen = "game_over"
	ScreenVictory          Screen = "victory"
)

// AnswerPhase tracks the answer resolution of the current question.
type AnswerPhase string

const (
	PhaseIdle            AnswerPhase = "idle"
	PhaseLocked          AnswerPhase = "locked"
	PhaseRevealedCorrect AnswerPhase = "revealed_correct"
	PhaseRevealedWrong   AnswerPhase = "revealed_wrong"
)

// LifelineKind names one of the three single-use aids.
type LifelineKind string

const (
	LifelineCutOptions  LifelineKind = "cut_options"
	LifelineCallFriend  LifelineKind = "call_friend"
	LifelineAskAudience LifelineKind = "ask_audience"
)

// AllLifelines lists every lifeline in display order.
var AllLifelines = []LifelineKind{LifelineCutOptions, LifelineCallFriend, LifelineAskAudience}

// ParseLifeline maps a wire name to a LifelineKind.
func ParseLifeline(s string) (LifelineKind, error) {
	switch LifelineKind(strings.ToLower(strings.TrimSpace(s))) {
	case LifelineCutOptions:
		return LifelineCutOptions, nil
	case LifelineCallFriend:
		return LifelineCallFriend, nil
	case LifelineAskAudience:
		return LifelineAskAudience, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLifeline, s)
}

// Availability records which lifelines are still unused this session.
type Availability struct {
	CutOptions  bool `json:"cut_options"`
	CallFriend  bool `json:"call_friend"`
	AskAudience bool `json:"ask_audience"`
}

// FullAvailability is the state at the start of every session.
func FullAvailability() Availability {
	return Availability{CutOptions: true, CallFriend: true, AskAudience: true}
}

// Available reports whether kind has not been used yet.
func (a Availability) Available(kind LifelineKind) bool {
	switch kind {
	case LifelineCutOptions:
		return a.CutOptions
	case LifelineCallFriend:
		return a.CallFriend
	case LifelineAskAudience:
		return a.AskAudience
	}
	return false
}

// consume marks kind used. It reports false if it was already used.
func (a *Availability) consume(kind LifelineKind) bool {
	if !a.Available(kind) {
		return false
	}
	switch kind {
	case LifelineCutOptions:
		a.CutOptions = false
	case LifelineCallFriend:
		a.CallFriend = false
	case LifelineAskAudience:
		a.AskAudience = false
	}
	return true
}
