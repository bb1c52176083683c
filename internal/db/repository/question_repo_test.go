package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockQuestionStore struct {
	mock.Mock
}

func (m *mockQuestionStore) InsertQuestion(ctx context.Context, q CustomQuestion) (CustomQuestion, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(CustomQuestion), args.Error(1)
}

func (m *mockQuestionStore) ListQuestions(ctx context.Context, difficulties []string, limit int) ([]CustomQuestion, error) {
	args := m.Called(ctx, difficulties, limit)
	return args.Get(0).([]CustomQuestion), args.Error(1)
}

func validQuestion() CustomQuestion {
	return CustomQuestion{
		Text:         "  Which planet is known as the Red Planet? ",
		Options:      []string{"Venus", "Mars", "Jupiter", "Saturn"},
		CorrectIndex: 1,
		Difficulty:   "Easy",
		Category:     "Science",
	}
}

func TestQuestionRepository_CreateAssignsIdentity(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	store.On("InsertQuestion", mock.Anything, mock.MatchedBy(func(q CustomQuestion) bool {
		return q.ID != uuid.Nil &&
			q.CreatedAt.Equal(fixed) &&
			q.Difficulty == "easy" &&
			q.Text == "Which planet is known as the Red Planet?"
	})).Return(CustomQuestion{Text: "stored"}, nil)

	got, err := repo.Create(context.Background(), validQuestion())
	require.NoError(t, err)
	assert.Equal(t, "stored", got.Text)
	store.AssertExpectations(t)
}

func TestQuestionRepository_CreateRejectsInvalid(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)

	cases := map[string]func(q *CustomQuestion){
		"empty text":      func(q *CustomQuestion) { q.Text = " " },
		"three options":   func(q *CustomQuestion) { q.Options = q.Options[:3] },
		"blank option":    func(q *CustomQuestion) { q.Options = []string{"a", "", "c", "d"} },
		"index too large": func(q *CustomQuestion) { q.CorrectIndex = 4 },
		"bad difficulty":  func(q *CustomQuestion) { q.Difficulty = "insane" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			q := validQuestion()
			mutate(&q)
			_, err := repo.Create(context.Background(), q)
			assert.ErrorIs(t, err, ErrInvalidCustomQuestion)
		})
	}
	store.AssertNotCalled(t, "InsertQuestion", mock.Anything, mock.Anything)
}

func TestQuestionRepository_CreateWrapsStoreError(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)
	boom := errors.New("disk full")
	store.On("InsertQuestion", mock.Anything, mock.Anything).Return(CustomQuestion{}, boom)

	_, err := repo.Create(context.Background(), validQuestion())
	assert.ErrorIs(t, err, boom)
}

func TestQuestionRepository_ListByDifficulty(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)
	rows := []CustomQuestion{{Text: "a", Difficulty: "hard"}}
	store.On("ListQuestions", mock.Anything, []string{"hard", "medium"}, 0).Return(rows, nil)

	got, err := repo.ListByDifficulty(context.Background(), []string{"hard", "medium"})
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}
