package question

import (
	"fmt"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
)

// Source labels where a question came from.
const (
	SourceCustom   = "custom"
	SourceAI       = "ai"
	SourceOpenTDB  = "opentdb"
	SourceTrivia   = "triviaapi"
	SourceFallback = "fallback"
)

// PromptBase frames every generation request.
const PromptBase = `You are the game engine for a high-energy "Mr. Beast" style trivia game.
Generate trivia questions with increasing difficulty.
Return ONLY valid JSON.`

// AIGenerateRequest asks a generator for count questions of a tier.
type AIGenerateRequest struct {
	Tier   game.Tier `json:"tier"`
	Count  int       `json:"count"`
	Prompt string    `json:"prompt"`
}

// PromptDetail is the tier-specific instruction for generating needed questions.
func PromptDetail(tier game.Tier, needed int) string {
	switch tier {
	case game.TierEasy:
		return fmt.Sprintf("Generate %d questions. Questions 1-4 Easy, 5-8 Medium. Topics: Viral trends, Pop Culture, General Knowledge.", needed)
	case game.TierMedium:
		return fmt.Sprintf("Generate %d questions. Questions 1-4 Easy, 5-8 Medium, 9-12 Hard. Topics: History, Science, Geography.", needed)
	case game.TierHard:
		return fmt.Sprintf("Generate %d questions. Questions 1-5 Easy/Medium, 6-10 Hard, 11-15 Very Hard. Topics: Obscure facts, Specific dates, Complex logic.", needed)
	default:
		return fmt.Sprintf("Generate %d questions. Start Medium, quickly ramping to Extremely Hard and Obscure. Topics: Deep Science, Ancient History, Niche Internet Culture.", needed)
	}
}

// BuildPrompt is the full generation prompt for tier.
func BuildPrompt(tier game.Tier, needed int) string {
	return PromptBase + " " + PromptDetail(tier, needed) + " Return only a raw JSON array of objects."
}

// NewGenerateRequest builds the generator request for needed questions of tier.
func NewGenerateRequest(tier game.Tier, needed int) AIGenerateRequest {
	return AIGenerateRequest{Tier: tier, Count: needed, Prompt: BuildPrompt(tier, needed)}
}

// CustomDifficulties lists the custom question tags eligible for tier.
func CustomDifficulties(tier game.Tier) []string {
	switch tier {
	case game.TierEasy:
		return []string{game.DifficultyEasy}
	case game.TierMedium:
		return []string{game.DifficultyMedium, game.DifficultyEasy}
	case game.TierHard:
		return []string{game.DifficultyHard, game.DifficultyMedium}
	default:
		return []string{game.DifficultyHard}
	}
}

// ExternalDifficulty maps a tier to the difficulty parameter of trivia APIs.
func ExternalDifficulty(tier game.Tier) string {
	switch tier {
	case game.TierEasy:
		return game.DifficultyEasy
	case game.TierMedium:
		return game.DifficultyMedium
	default:
		return game.DifficultyHard
	}
}
