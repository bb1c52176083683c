package question

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
)

//go:embed fallback.yaml
var fallbackYAML []byte

type bankEntry struct {
	Text         string   `yaml:"text"`
	Options      []string `yaml:"options"`
	CorrectIndex int      `yaml:"correct_index"`
	Difficulty   string   `yaml:"difficulty"`
	Category     string   `yaml:"category"`
}

// ParseBank decodes a YAML question bank. Every entry must be a valid question.
func ParseBank(data []byte) ([]game.Question, error) {
	var entries []bankEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}
	out := make([]game.Question, 0, len(entries))
	for i, e := range entries {
		q, err := toGameQuestion(e.Text, e.Options, e.CorrectIndex, e.Difficulty, e.Category)
		if err != nil {
			return nil, fmt.Errorf("bank entry %d: %w", i, err)
		}
		out = append(out, q)
	}
	return out, nil
}

// FallbackBank returns the built-in questions used to pad a game.
func FallbackBank() []game.Question {
	qs, err := ParseBank(fallbackYAML)
	if err != nil {
		panic(err)
	}
	return qs
}

func toGameQuestion(text string, options []string, correct int, difficulty, category string) (game.Question, error) {
	if len(options) != game.OptionCount {
		return game.Question{}, fmt.Errorf("%w: %d options", game.ErrInvalidQuestion, len(options))
	}
	q := game.Question{
		Text:         text,
		CorrectIndex: correct,
		Difficulty:   difficulty,
		Category:     category,
	}
	copy(q.Options[:], options)
	if err := q.Validate(); err != nil {
		return game.Question{}, err
	}
	return q, nil
}
