package game

import (
	"errors"
	"fmt"
)

// Intent rejections. None of them change session state.
var (
	ErrInvalidTransition  = errors.New("intent not valid in current screen")
	ErrFetchPending       = errors.New("question fetch already in progress")
	ErrUnknownTier        = errors.New("unknown difficulty tier")
	ErrUnknownLifeline    = errors.New("unknown lifeline")
	ErrLifelineNotAllowed = errors.New("lifeline not allowed at this difficulty")
	ErrLifelineUsed       = errors.New("lifeline already used")
	ErrLifelineDisplayed  = errors.New("a lifeline is being displayed")
	ErrNoLifelineShown    = errors.New("no lifeline is being displayed")
	ErrAnswerLocked       = errors.New("answer already locked")
	ErrInvalidOption      = errors.New("option index out of range")
	ErrOptionRemoved      = errors.New("option was removed")
	ErrRoundClosed        = errors.New("round is closed")
	ErrInvalidQuestion    = errors.New("invalid question")
	ErrSessionClosed      = errors.New("session closed")
)

// FetchFailedMessage is the retryable error shown when questions cannot be loaded.
const FetchFailedMessage = "Failed to generate questions. Please try again."

// GenerationError is returned by a QuestionSource that cannot produce enough questions.
type GenerationError struct {
	Tier Tier
	Need int
	Got  int
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generate %s questions: need %d got %d: %v", e.Tier, e.Need, e.Got, e.Err)
	}
	return fmt.Sprintf("generate %s questions: need %d got %d", e.Tier, e.Need, e.Got)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
