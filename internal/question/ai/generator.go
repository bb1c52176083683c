package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
	"github.com/gokatarajesh/ladder-quiz/internal/question"
)

// Config holds connection details for the AI generator service.
type Config struct {
	GeneratorURL string
	GeneratorKey string
	Timeout      time.Duration
}

// Generator implements question.AIGenerator against an HTTP generation service.
type Generator struct {
	httpClient  *http.Client
	config      Config
	logger      zerolog.Logger
	generateURL string
}

var _ question.AIGenerator = (*Generator)(nil)

func NewGenerator(cfg Config, logger zerolog.Logger) *Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	base := strings.TrimSuffix(cfg.GeneratorURL, "/")

	return &Generator{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		config:      cfg,
		logger:      logger.With().Str("component", "ai_generator").Logger(),
		generateURL: base + "/generate",
	}
}

// GeneratePack synchronously requests questions for a tier.
func (g *Generator) GeneratePack(ctx context.Context, req question.AIGenerateRequest) ([]game.Question, error) {
	if g.config.GeneratorURL == "" {
		return nil, fmt.Errorf("generator endpoint not configured")
	}

	body, err := json.Marshal(generatorRequest{
		Tier:   string(req.Tier),
		Count:  req.Count,
		Prompt: req.Prompt,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.generateURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.config.GeneratorKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.config.GeneratorKey)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	var genResp generatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("decode generator payload: %w", err)
	}

	questions := normalizeAll(genResp.Questions, g.logger)
	if len(questions) == 0 {
		return nil, fmt.Errorf("generator returned empty question set")
	}
	g.logger.Debug().Str("tier", string(req.Tier)).Int("requested", req.Count).Int("received", len(questions)).Msg("ai pack generated")
	return questions, nil
}

type generatorRequest struct {
	Tier   string `json:"tier"`
	Count  int    `json:"count"`
	Prompt string `json:"prompt"`
}

type generatorResponse struct {
	Questions []aiQuestion `json:"questions"`
}

// aiQuestion is the question shape the model is asked to produce.
type aiQuestion struct {
	QuestionText       string   `json:"questionText"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Difficulty         string   `json:"difficulty"`
	Category           string   `json:"category"`
}

func (q aiQuestion) normalize() (game.Question, error) {
	if len(q.Options) != game.OptionCount {
		return game.Question{}, fmt.Errorf("%w: %d options", game.ErrInvalidQuestion, len(q.Options))
	}
	out := game.Question{
		Text:         strings.TrimSpace(q.QuestionText),
		CorrectIndex: q.CorrectAnswerIndex,
		Difficulty:   normalizeDifficulty(q.Difficulty),
		Category:     strings.TrimSpace(q.Category),
	}
	for i, opt := range q.Options {
		out.Options[i] = strings.TrimSpace(opt)
	}
	if err := out.Validate(); err != nil {
		return game.Question{}, err
	}
	return out, nil
}

func normalizeAll(in []aiQuestion, logger zerolog.Logger) []game.Question {
	out := make([]game.Question, 0, len(in))
	for i, q := range in {
		nq, err := q.normalize()
		if err != nil {
			logger.Debug().Err(err).Int("index", i).Msg("dropping malformed ai question")
			continue
		}
		out = append(out, nq)
	}
	return out
}

func normalizeDifficulty(d string) string {
	switch d = strings.ToLower(strings.TrimSpace(d)); d {
	case game.DifficultyEasy, game.DifficultyMedium, game.DifficultyHard:
		return d
	case "very hard", "extremely hard":
		return game.DifficultyHard
	default:
		return game.DifficultyMedium
	}
}
