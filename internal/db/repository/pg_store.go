package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGQuestionStore keeps custom questions in Postgres. The table is created by
// the migrations under db/migrations.
type PGQuestionStore struct {
	pool *pgxpool.Pool
}

func NewPGQuestionStore(pool *pgxpool.Pool) *PGQuestionStore {
	return &PGQuestionStore{pool: pool}
}

const pgInsertQuestion = `
INSERT INTO custom_questions (question_id, text, options, correct_index, difficulty, category, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING question_id, text, options, correct_index, difficulty, category, created_at`

func (s *PGQuestionStore) InsertQuestion(ctx context.Context, q CustomQuestion) (CustomQuestion, error) {
	row := s.pool.QueryRow(ctx, pgInsertQuestion,
		q.ID, q.Text, q.Options, q.CorrectIndex, q.Difficulty, q.Category, q.CreatedAt)
	return scanPGQuestion(row)
}

func (s *PGQuestionStore) ListQuestions(ctx context.Context, difficulties []string, limit int) ([]CustomQuestion, error) {
	query := `SELECT question_id, text, options, correct_index, difficulty, category, created_at
FROM custom_questions
WHERE cardinality($1::text[]) = 0 OR difficulty = ANY($1::text[])
ORDER BY created_at, question_id`
	args := []any{difficulties}
	if difficulties == nil {
		args[0] = []string{}
	}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query custom questions: %w", err)
	}
	defer rows.Close()

	var out []CustomQuestion
	for rows.Next() {
		q, err := scanPGQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func scanPGQuestion(row pgx.Row) (CustomQuestion, error) {
	var q CustomQuestion
	if err := row.Scan(&q.ID, &q.Text, &q.Options, &q.CorrectIndex, &q.Difficulty, &q.Category, &q.CreatedAt); err != nil {
		return CustomQuestion{}, fmt.Errorf("scan custom question: %w", err)
	}
	return q, nil
}
