package external

import (
	"fmt"
	"strings"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
)

// assemble places correct at pos among the first three incorrect answers.
func assemble(text, correct string, incorrect []string, pos int, difficulty, category string) (game.Question, error) {
	if len(incorrect) < game.OptionCount-1 {
		return game.Question{}, fmt.Errorf("%w: %d incorrect answers", game.ErrInvalidQuestion, len(incorrect))
	}
	if pos < 0 || pos >= game.OptionCount {
		pos = 0
	}
	q := game.Question{
		Text:         strings.TrimSpace(text),
		CorrectIndex: pos,
		Difficulty:   difficulty,
		Category:     category,
	}
	next := 0
	for i := range q.Options {
		if i == pos {
			q.Options[i] = strings.TrimSpace(correct)
			continue
		}
		q.Options[i] = strings.TrimSpace(incorrect[next])
		next++
	}
	if err := q.Validate(); err != nil {
		return game.Question{}, err
	}
	return q, nil
}
