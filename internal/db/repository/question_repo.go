package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidCustomQuestion is returned when a submitted question cannot be stored.
var ErrInvalidCustomQuestion = errors.New("invalid custom question")

// CustomQuestion is a user-authored question kept in durable storage.
type CustomQuestion struct {
	ID           uuid.UUID `json:"id"`
	Text         string    `json:"text"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"correct_index"`
	Difficulty   string    `json:"difficulty"`
	Category     string    `json:"category"`
	CreatedAt    time.Time `json:"created_at"`
}

type questionStore interface {
	InsertQuestion(ctx context.Context, q CustomQuestion) (CustomQuestion, error)
	ListQuestions(ctx context.Context, difficulties []string, limit int) ([]CustomQuestion, error)
}

// QuestionRepository validates custom questions and delegates persistence to a store.
type QuestionRepository struct {
	store questionStore
	now   func() time.Time
}

func NewQuestionRepository(store questionStore) *QuestionRepository {
	return &QuestionRepository{store: store, now: time.Now}
}

// Create appends a question. ID and CreatedAt are assigned when unset.
func (r *QuestionRepository) Create(ctx context.Context, q CustomQuestion) (CustomQuestion, error) {
	q.Text = strings.TrimSpace(q.Text)
	q.Difficulty = strings.ToLower(strings.TrimSpace(q.Difficulty))
	q.Category = strings.TrimSpace(q.Category)
	if err := validateCustom(q); err != nil {
		return CustomQuestion{}, err
	}
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = r.now().UTC()
	}
	saved, err := r.store.InsertQuestion(ctx, q)
	if err != nil {
		return CustomQuestion{}, fmt.Errorf("insert custom question: %w", err)
	}
	return saved, nil
}

// ListByDifficulty returns every stored question tagged with one of difficulties,
// oldest first. An empty filter returns everything.
func (r *QuestionRepository) ListByDifficulty(ctx context.Context, difficulties []string) ([]CustomQuestion, error) {
	rows, err := r.store.ListQuestions(ctx, difficulties, 0)
	if err != nil {
		return nil, fmt.Errorf("list custom questions: %w", err)
	}
	return rows, nil
}

func validateCustom(q CustomQuestion) error {
	if q.Text == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidCustomQuestion)
	}
	if len(q.Options) != 4 {
		return fmt.Errorf("%w: exactly 4 options required, got %d", ErrInvalidCustomQuestion, len(q.Options))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %d is empty", ErrInvalidCustomQuestion, i)
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex > 3 {
		return fmt.Errorf("%w: correct index %d out of range", ErrInvalidCustomQuestion, q.CorrectIndex)
	}
	switch q.Difficulty {
	case "easy", "medium", "hard":
	default:
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidCustomQuestion, q.Difficulty)
	}
	return nil
}
