package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // driver: sqlite
)

const defaultSQLiteDSN = "file:ladder-quiz.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS custom_questions (
  question_id TEXT PRIMARY KEY,
  text TEXT NOT NULL,
  options_json TEXT NOT NULL,
  correct_index INTEGER NOT NULL,
  difficulty TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS custom_questions_difficulty_idx ON custom_questions (difficulty);
`

// SQLiteQuestionStore keeps custom questions in a local SQLite file for
// single-node deployments.
type SQLiteQuestionStore struct {
	db *sql.DB
}

// OpenSQLite opens dsn with the modernc driver and ensures the schema exists.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		dsn = defaultSQLiteDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		// every connection to an in-memory database is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure sqlite schema: %w", err)
	}
	return db, nil
}

func NewSQLiteQuestionStore(db *sql.DB) *SQLiteQuestionStore {
	return &SQLiteQuestionStore{db: db}
}

func (s *SQLiteQuestionStore) InsertQuestion(ctx context.Context, q CustomQuestion) (CustomQuestion, error) {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return CustomQuestion{}, fmt.Errorf("encode options: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO custom_questions
		(question_id, text, options_json, correct_index, difficulty, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.ID.String(), q.Text, string(opts), q.CorrectIndex, q.Difficulty, q.Category, q.CreatedAt.UnixMilli())
	if err != nil {
		return CustomQuestion{}, fmt.Errorf("insert custom question: %w", err)
	}
	q.CreatedAt = time.UnixMilli(q.CreatedAt.UnixMilli()).UTC()
	return q, nil
}

func (s *SQLiteQuestionStore) ListQuestions(ctx context.Context, difficulties []string, limit int) ([]CustomQuestion, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT question_id, text, options_json, correct_index, difficulty, category, created_at
		FROM custom_questions`)
	if len(difficulties) > 0 {
		sb.WriteString(` WHERE difficulty IN (?` + strings.Repeat(",?", len(difficulties)-1) + `)`)
		for _, d := range difficulties {
			args = append(args, d)
		}
	}
	sb.WriteString(` ORDER BY created_at, rowid`)
	if limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query custom questions: %w", err)
	}
	defer rows.Close()

	var out []CustomQuestion
	for rows.Next() {
		var (
			q       CustomQuestion
			id      string
			opts    string
			created int64
		)
		if err := rows.Scan(&id, &q.Text, &opts, &q.CorrectIndex, &q.Difficulty, &q.Category, &created); err != nil {
			return nil, fmt.Errorf("scan custom question: %w", err)
		}
		if q.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse question id %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of %s: %w", id, err)
		}
		q.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, q)
	}
	return out, rows.Err()
}
