package external

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
)

// maxOpenTDBAmount is the largest batch the API serves per call.
const maxOpenTDBAmount = 50

// OpenTDBClient fetches multiple-choice questions from the Open Trivia DB.
type OpenTDBClient struct {
	api jsonAPI
}

func NewOpenTDBClient(baseURL string, httpClient *http.Client) *OpenTDBClient {
	return &OpenTDBClient{api: newJSONAPI("opentdb", baseURL, "https://opentdb.com", httpClient)}
}

type OpenTDBQuestion struct {
	Category        string   `json:"category"`
	Type            string   `json:"type"`
	Difficulty      string   `json:"difficulty"`
	Question        string   `json:"question"`
	CorrectAnswer   string   `json:"correct_answer"`
	IncorrectAnswer []string `json:"incorrect_answers"`
}

// Fetch requests up to amount questions of difficulty. A non-zero
// response_code (no results, rate limited) is an error.
func (c *OpenTDBClient) Fetch(ctx context.Context, amount int, difficulty string) ([]OpenTDBQuestion, error) {
	query := url.Values{
		"amount": {strconv.Itoa(min(amount, maxOpenTDBAmount))},
		"type":   {"multiple"},
	}
	if difficulty != "" {
		query.Set("difficulty", difficulty)
	}

	var payload struct {
		ResponseCode int               `json:"response_code"`
		Results      []OpenTDBQuestion `json:"results"`
	}
	if err := c.api.get(ctx, "/api.php", query, &payload); err != nil {
		return nil, err
	}
	if payload.ResponseCode != 0 {
		return nil, fmt.Errorf("opentdb response code %d", payload.ResponseCode)
	}
	return payload.Results, nil
}

// Normalize converts q into a game question with the correct answer at
// position pos. The API HTML-escapes its text.
func (q OpenTDBQuestion) Normalize(pos int) (game.Question, error) {
	incorrect := make([]string, len(q.IncorrectAnswer))
	for i, s := range q.IncorrectAnswer {
		incorrect[i] = html.UnescapeString(s)
	}
	return assemble(
		html.UnescapeString(q.Question),
		html.UnescapeString(q.CorrectAnswer),
		incorrect,
		pos,
		strings.ToLower(q.Difficulty),
		html.UnescapeString(q.Category),
	)
}
