package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
	"github.com/gokatarajesh/ladder-quiz/internal/question"
)

const submitQuestionsTool = "submit_questions"

// OpenAIConfig selects the chat model. BaseURL is optional.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIGenerator implements question.AIGenerator with a forced tool call so
// the model returns structured questions.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

var _ question.AIGenerator = (*OpenAIGenerator)(nil)

func NewOpenAIGenerator(cfg OpenAIConfig, logger zerolog.Logger) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger.With().Str("component", "openai_generator").Logger(),
	}
}

func (g *OpenAIGenerator) GeneratePack(ctx context.Context, req question.AIGenerateRequest) ([]game.Question, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: question.PromptBase,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt + " Every question has exactly 4 options. Use the " + submitQuestionsTool + " tool to return them.",
			},
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        submitQuestionsTool,
					Description: "Submit generated trivia questions",
					Parameters:  questionsSchema,
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type: openai.ToolTypeFunction,
			Function: openai.ToolFunction{
				Name: submitQuestionsTool,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in completion")
	}

	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("no tool calls in completion")
	}
	call := choice.Message.ToolCalls[0]
	if call.Function.Name != submitQuestionsTool {
		return nil, fmt.Errorf("unexpected tool call: %s", call.Function.Name)
	}

	var args struct {
		Questions []aiQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return nil, fmt.Errorf("parse tool arguments: %w", err)
	}

	questions := normalizeAll(args.Questions, g.logger)
	if len(questions) == 0 {
		return nil, fmt.Errorf("model returned no usable questions")
	}
	g.logger.Debug().Str("tier", string(req.Tier)).Int("requested", req.Count).Int("received", len(questions)).Msg("ai pack generated")
	return questions, nil
}

var questionsSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"questions": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"questionText": map[string]interface{}{
						"type":        "string",
						"description": "The question text",
					},
					"options": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"minItems":    4,
						"maxItems":    4,
						"description": "Exactly 4 answer options",
					},
					"correctAnswerIndex": map[string]interface{}{
						"type":        "integer",
						"description": "0-based index of the correct option",
					},
					"difficulty": map[string]interface{}{
						"type": "string",
						"enum": []string{"easy", "medium", "hard"},
					},
					"category": map[string]interface{}{
						"type": "string",
					},
				},
				"required": []string{"questionText", "options", "correctAnswerIndex", "difficulty", "category"},
			},
		},
	},
	"required": []string{"questions"},
}
