package external

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
)

// TriviaAPIClient fetches questions from The Trivia API. The key is optional.
type TriviaAPIClient struct {
	api jsonAPI
}

func NewTriviaAPIClient(baseURL, apiKey string, httpClient *http.Client) *TriviaAPIClient {
	api := newJSONAPI("triviaapi", baseURL, "https://the-trivia-api.com/api", httpClient)
	if apiKey != "" {
		api.headers.Set("X-API-Key", apiKey)
	}
	return &TriviaAPIClient{api: api}
}

type TriviaAPIQuestion struct {
	ID         string   `json:"id"`
	Category   string   `json:"category"`
	Question   string   `json:"question"`
	Difficulty string   `json:"difficulty"`
	Correct    string   `json:"correctAnswer"`
	Incorrect  []string `json:"incorrectAnswers"`
}

func (c *TriviaAPIClient) Fetch(ctx context.Context, amount int, difficulty string) ([]TriviaAPIQuestion, error) {
	query := url.Values{"limit": {strconv.Itoa(amount)}}
	if difficulty != "" {
		query.Set("difficulty", difficulty)
	}

	var payload []TriviaAPIQuestion
	if err := c.api.get(ctx, "/questions", query, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Normalize converts q into a game question with the correct answer at position pos.
func (q TriviaAPIQuestion) Normalize(pos int) (game.Question, error) {
	return assemble(q.Question, q.Correct, q.Incorrect, pos, strings.ToLower(q.Difficulty), q.Category)
}
