package question

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/ladder-quiz/internal/db/repository"
	"github.com/gokatarajesh/ladder-quiz/internal/game"
	"github.com/gokatarajesh/ladder-quiz/internal/question/external"
)

type stubCustom struct {
	mu    sync.Mutex
	rows  []repository.CustomQuestion
	err   error
	asked [][]string
}

func (s *stubCustom) ListByDifficulty(_ context.Context, difficulties []string) ([]repository.CustomQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, difficulties)
	if s.err != nil {
		return nil, s.err
	}
	var out []repository.CustomQuestion
	for _, r := range s.rows {
		for _, d := range difficulties {
			if r.Difficulty == d {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

type memoryCache struct {
	mu    sync.Mutex
	packs map[game.Tier][]game.Question
}

func newMemoryCache() *memoryCache {
	return &memoryCache{packs: map[game.Tier][]game.Question{}}
}

func (c *memoryCache) Take(_ context.Context, tier game.Tier) ([]game.Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	qs := c.packs[tier]
	delete(c.packs, tier)
	return qs, nil
}

func (c *memoryCache) Put(_ context.Context, tier game.Tier, qs []game.Question) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packs[tier] = qs
	return nil
}

type stubAI struct {
	mu       sync.Mutex
	produce  func(req AIGenerateRequest) ([]game.Question, error)
	requests []AIGenerateRequest
}

func (s *stubAI) GeneratePack(_ context.Context, req AIGenerateRequest) ([]game.Question, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.produce(req)
}

type stubOpentdb struct {
	questions []external.OpenTDBQuestion
	err       error
}

func (s *stubOpentdb) Fetch(_ context.Context, amount int, _ string) ([]external.OpenTDBQuestion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.questions[:min(amount, len(s.questions))], nil
}

type stubTrivia struct {
	questions []external.TriviaAPIQuestion
}

func (s *stubTrivia) Fetch(_ context.Context, amount int, _ string) ([]external.TriviaAPIQuestion, error) {
	return s.questions[:min(amount, len(s.questions))], nil
}

type countingObserver struct {
	served map[string]int
}

func (o *countingObserver) QuestionsServed(_ game.Tier, source string, n int) {
	if o.served == nil {
		o.served = map[string]int{}
	}
	o.served[source] += n
}

func genQuestions(prefix string, n int, difficulty string) []game.Question {
	qs := make([]game.Question, n)
	for i := range qs {
		qs[i] = game.Question{
			Text:         fmt.Sprintf("%s %d?", prefix, i),
			Options:      [4]string{"w", "x", "y", "z"},
			CorrectIndex: i % 4,
			Difficulty:   difficulty,
		}
	}
	return qs
}

func customRows(prefix string, n int, difficulty string) []repository.CustomQuestion {
	rows := make([]repository.CustomQuestion, n)
	for i := range rows {
		rows[i] = repository.CustomQuestion{
			ID:           uuid.New(),
			Text:         fmt.Sprintf("%s %d?", prefix, i),
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: 1,
			Difficulty:   difficulty,
		}
	}
	return rows
}

func newTestService(custom CustomStore, cache PackCache, ai AIGenerator, opts ServiceOptions) *Service {
	if opts.Rand == nil {
		opts.Rand = game.NewRand(42)
	}
	return NewService(custom, cache, nil, nil, ai, opts, zerolog.New(io.Discard))
}

func TestService_FallbackOnlyFillsExactCount(t *testing.T) {
	svc := newTestService(nil, nil, nil, ServiceOptions{})

	for _, p := range game.Profiles() {
		qs, err := svc.FetchQuestions(context.Background(), p.Tier)
		require.NoError(t, err)
		assert.Len(t, qs, p.QuestionCount, p.Tier)
		for _, q := range qs {
			assert.NoError(t, q.Validate())
		}
	}
}

func TestService_FallbackPadsInBankOrder(t *testing.T) {
	svc := newTestService(nil, nil, nil, ServiceOptions{})
	qs, err := svc.FetchQuestions(context.Background(), game.TierEasy)
	require.NoError(t, err)

	bank := FallbackBank()
	assert.Equal(t, bank[:8], qs)
}

func TestService_FallbackCyclesWhenBankIsShort(t *testing.T) {
	obs := &countingObserver{}
	svc := newTestService(nil, nil, nil, ServiceOptions{Fallback: genQuestions("bank", 3, "easy"), Observer: obs})

	qs, err := svc.FetchQuestions(context.Background(), game.TierHard)
	require.NoError(t, err)
	require.Len(t, qs, 15)
	assert.Equal(t, qs[0], qs[3])
	assert.Equal(t, 15, obs.served[SourceFallback])
}

func TestService_EmptyBankIsGenerationError(t *testing.T) {
	svc := newTestService(nil, nil, nil, ServiceOptions{Fallback: []game.Question{}})

	_, err := svc.FetchQuestions(context.Background(), game.TierEasy)
	var genErr *game.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 8, genErr.Need)
	assert.Equal(t, 0, genErr.Got)
}

func TestService_UnknownTier(t *testing.T) {
	svc := newTestService(nil, nil, nil, ServiceOptions{})
	_, err := svc.FetchQuestions(context.Background(), "LEGENDARY")
	assert.ErrorIs(t, err, game.ErrUnknownTier)
}

func TestService_CustomFirstWithTierFilter(t *testing.T) {
	custom := &stubCustom{rows: append(customRows("easy", 3, "easy"), customRows("hard", 20, "hard")...)}
	ai := &stubAI{produce: func(req AIGenerateRequest) ([]game.Question, error) {
		return genQuestions("ai", req.Count, "medium"), nil
	}}
	obs := &countingObserver{}
	svc := newTestService(custom, nil, ai, ServiceOptions{Observer: obs})

	qs, err := svc.FetchQuestions(context.Background(), game.TierMedium)
	require.NoError(t, err)
	require.Len(t, qs, 12)
	assert.Equal(t, [][]string{{"medium", "easy"}}, custom.asked)
	assert.Equal(t, 3, obs.served[SourceCustom])
	assert.Equal(t, 9, obs.served[SourceAI])
	for _, q := range qs[:3] {
		assert.Contains(t, q.Text, "easy")
	}

	require.Len(t, ai.requests, 1)
	assert.Equal(t, 9, ai.requests[0].Count)
	assert.Contains(t, ai.requests[0].Prompt, "Generate 9 questions. Questions 1-4 Easy, 5-8 Medium, 9-12 Hard.")
	assert.Contains(t, ai.requests[0].Prompt, PromptBase)
}

func TestService_CustomCappedAtCount(t *testing.T) {
	custom := &stubCustom{rows: customRows("hard", 40, "hard")}
	svc := newTestService(custom, nil, nil, ServiceOptions{})

	qs, err := svc.FetchQuestions(context.Background(), game.TierImpossible)
	require.NoError(t, err)
	require.Len(t, qs, 15)
	for _, q := range qs {
		assert.Contains(t, q.Text, "hard")
	}
}

func TestService_CustomErrorFallsThrough(t *testing.T) {
	custom := &stubCustom{err: errors.New("db down")}
	svc := newTestService(custom, nil, nil, ServiceOptions{})

	qs, err := svc.FetchQuestions(context.Background(), game.TierEasy)
	require.NoError(t, err)
	assert.Len(t, qs, 8)
}

func TestService_AIFailureFallsBackToBank(t *testing.T) {
	ai := &stubAI{produce: func(AIGenerateRequest) ([]game.Question, error) {
		return nil, errors.New("quota exceeded")
	}}
	obs := &countingObserver{}
	svc := newTestService(nil, nil, ai, ServiceOptions{Observer: obs})

	qs, err := svc.FetchQuestions(context.Background(), game.TierEasy)
	require.NoError(t, err)
	assert.Len(t, qs, 8)
	assert.Equal(t, 8, obs.served[SourceFallback])
}

func TestService_DropsInvalidAndDuplicateQuestions(t *testing.T) {
	ai := &stubAI{produce: func(req AIGenerateRequest) ([]game.Question, error) {
		qs := genQuestions("ai", 4, "easy")
		qs = append(qs, qs[0])                                         // duplicate
		qs = append(qs, game.Question{Text: "broken", CorrectIndex: 9}) // invalid
		return qs, nil
	}}
	obs := &countingObserver{}
	svc := newTestService(nil, nil, ai, ServiceOptions{Observer: obs})

	qs, err := svc.FetchQuestions(context.Background(), game.TierEasy)
	require.NoError(t, err)
	require.Len(t, qs, 8)
	assert.Equal(t, 4, obs.served[SourceAI])
	assert.Equal(t, 4, obs.served[SourceFallback])
	seen := map[string]bool{}
	for _, q := range qs {
		assert.False(t, seen[q.Text], "duplicate %q", q.Text)
		seen[q.Text] = true
	}
}

func TestService_UsesCachedPackAndRequestsRefill(t *testing.T) {
	cache := newMemoryCache()
	require.NoError(t, cache.Put(context.Background(), game.TierHard, genQuestions("cached", 15, "hard")))
	ai := &stubAI{produce: func(req AIGenerateRequest) ([]game.Question, error) {
		return genQuestions("fresh", req.Count, "hard"), nil
	}}
	refill := make(chan game.Tier, 1)
	svc := newTestService(nil, cache, ai, ServiceOptions{Refill: refill})

	qs, err := svc.FetchQuestions(context.Background(), game.TierHard)
	require.NoError(t, err)
	require.Len(t, qs, 15)
	assert.Contains(t, qs[0].Text, "cached")
	assert.Empty(t, ai.requests)
	assert.Equal(t, game.TierHard, <-refill)

	// The pack was consumed; the next game generates.
	qs, err = svc.FetchQuestions(context.Background(), game.TierHard)
	require.NoError(t, err)
	assert.Contains(t, qs[0].Text, "fresh")
	assert.Len(t, ai.requests, 1)
}

func TestService_ShortCachedPackIsKept(t *testing.T) {
	t.Run("without generator", func(t *testing.T) {
		cache := newMemoryCache()
		require.NoError(t, cache.Put(context.Background(), game.TierEasy, genQuestions("cached", 5, "easy")))
		obs := &countingObserver{}
		svc := newTestService(nil, cache, nil, ServiceOptions{Observer: obs})

		qs, err := svc.FetchQuestions(context.Background(), game.TierEasy)
		require.NoError(t, err)
		require.Len(t, qs, 8)
		assert.Equal(t, 5, obs.served[SourceAI])
		assert.Equal(t, 3, obs.served[SourceFallback])
		for _, q := range qs[:5] {
			assert.Contains(t, q.Text, "cached")
		}
	})

	t.Run("generator fills the remainder", func(t *testing.T) {
		cache := newMemoryCache()
		require.NoError(t, cache.Put(context.Background(), game.TierEasy, genQuestions("cached", 5, "easy")))
		ai := &stubAI{produce: func(req AIGenerateRequest) ([]game.Question, error) {
			return genQuestions("fresh", req.Count, "easy"), nil
		}}
		obs := &countingObserver{}
		svc := newTestService(nil, cache, ai, ServiceOptions{Observer: obs})

		qs, err := svc.FetchQuestions(context.Background(), game.TierEasy)
		require.NoError(t, err)
		require.Len(t, qs, 8)
		require.Len(t, ai.requests, 1)
		assert.Equal(t, 3, ai.requests[0].Count)
		assert.Equal(t, 8, obs.served[SourceAI])
		assert.Contains(t, qs[4].Text, "cached")
		assert.Contains(t, qs[5].Text, "fresh")
	})

	t.Run("generator failure keeps cached", func(t *testing.T) {
		cache := newMemoryCache()
		require.NoError(t, cache.Put(context.Background(), game.TierEasy, genQuestions("cached", 5, "easy")))
		ai := &stubAI{produce: func(AIGenerateRequest) ([]game.Question, error) {
			return nil, errors.New("quota exceeded")
		}}
		obs := &countingObserver{}
		svc := newTestService(nil, cache, ai, ServiceOptions{Observer: obs})

		qs, err := svc.FetchQuestions(context.Background(), game.TierEasy)
		require.NoError(t, err)
		require.Len(t, qs, 8)
		assert.Equal(t, 5, obs.served[SourceAI])
		assert.Equal(t, 3, obs.served[SourceFallback])
	})
}

func TestService_ExternalSourcesNormalized(t *testing.T) {
	opentdb := &stubOpentdb{questions: []external.OpenTDBQuestion{
		{Question: "Who wrote &quot;Hamlet&quot;?", CorrectAnswer: "Shakespeare", IncorrectAnswer: []string{"Marlowe", "Jonson", "Bacon"}, Difficulty: "easy"},
		{Question: "Too few options", CorrectAnswer: "yes", IncorrectAnswer: []string{"no"}, Difficulty: "easy"},
	}}
	trivia := &stubTrivia{questions: []external.TriviaAPIQuestion{
		{Question: "Largest ocean?", Correct: "Pacific", Incorrect: []string{"Atlantic", "Indian", "Arctic"}, Difficulty: "easy"},
	}}
	obs := &countingObserver{}
	svc := NewService(nil, nil, opentdb, trivia, nil, ServiceOptions{Rand: game.NewRand(3), Observer: obs}, zerolog.New(io.Discard))

	qs, err := svc.FetchQuestions(context.Background(), game.TierEasy)
	require.NoError(t, err)
	require.Len(t, qs, 8)
	assert.Equal(t, `Who wrote "Hamlet"?`, qs[0].Text)
	assert.Equal(t, "Shakespeare", qs[0].CorrectAnswer())
	assert.Equal(t, "Pacific", qs[1].CorrectAnswer())
	assert.Equal(t, 1, obs.served[SourceOpenTDB])
	assert.Equal(t, 1, obs.served[SourceTrivia])
	assert.Equal(t, 6, obs.served[SourceFallback])
}

func TestService_Prewarm(t *testing.T) {
	cache := newMemoryCache()
	ai := &stubAI{produce: func(req AIGenerateRequest) ([]game.Question, error) {
		return genQuestions("warm", req.Count, "easy"), nil
	}}
	svc := newTestService(nil, cache, ai, ServiceOptions{})

	require.NoError(t, svc.Prewarm(context.Background(), game.TierEasy))
	require.Len(t, ai.requests, 1)
	assert.Equal(t, 8, ai.requests[0].Count)
	assert.Equal(t, game.TierEasy, ai.requests[0].Tier)

	pack, err := cache.Take(context.Background(), game.TierEasy)
	require.NoError(t, err)
	assert.Len(t, pack, 8)
}

func TestService_PrewarmWithoutAIIsNoop(t *testing.T) {
	svc := newTestService(nil, newMemoryCache(), nil, ServiceOptions{})
	assert.NoError(t, svc.Prewarm(context.Background(), game.TierEasy))
}

func TestService_ConcurrentFetches(t *testing.T) {
	ai := &stubAI{produce: func(req AIGenerateRequest) ([]game.Question, error) {
		return genQuestions("ai", req.Count, "easy"), nil
	}}
	svc := newTestService(&stubCustom{rows: customRows("c", 4, "easy")}, nil, ai, ServiceOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			qs, err := svc.FetchQuestions(context.Background(), game.TierEasy)
			assert.NoError(t, err)
			assert.Len(t, qs, 8)
		}()
	}
	wg.Wait()
}

func TestPromptDetailPerTier(t *testing.T) {
	assert.Contains(t, PromptDetail(game.TierEasy, 8), "Viral trends, Pop Culture, General Knowledge")
	assert.Contains(t, PromptDetail(game.TierHard, 15), "Obscure facts, Specific dates, Complex logic")
	assert.Contains(t, PromptDetail(game.TierImpossible, 2), "Generate 2 questions. Start Medium")
	assert.Equal(t, []string{"hard"}, CustomDifficulties(game.TierImpossible))
	assert.Equal(t, []string{"hard", "medium"}, CustomDifficulties(game.TierHard))
}
