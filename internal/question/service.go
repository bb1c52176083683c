package question

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/gokatarajesh/ladder-quiz/internal/db/repository"
	"github.com/gokatarajesh/ladder-quiz/internal/game"
	"github.com/gokatarajesh/ladder-quiz/internal/question/external"
)

// CustomStore lists user-authored questions by difficulty tag.
type CustomStore interface {
	ListByDifficulty(ctx context.Context, difficulties []string) ([]repository.CustomQuestion, error)
}

// PackCache holds pre-generated AI packs per tier (implemented by Redis-backed Cache).
type PackCache interface {
	Take(ctx context.Context, tier game.Tier) ([]game.Question, error)
	Put(ctx context.Context, tier game.Tier, qs []game.Question) error
}

// AIGenerator produces questions from a language model.
type AIGenerator interface {
	GeneratePack(ctx context.Context, req AIGenerateRequest) ([]game.Question, error)
}

// Observer is told how many questions each source contributed to a game.
type Observer interface {
	QuestionsServed(tier game.Tier, source string, n int)
}

type opentdbProvider interface {
	Fetch(ctx context.Context, amount int, difficulty string) ([]external.OpenTDBQuestion, error)
}

type triviaProvider interface {
	Fetch(ctx context.Context, amount int, difficulty string) ([]external.TriviaAPIQuestion, error)
}

// ServiceOptions tunes a Service. Zero values select defaults.
type ServiceOptions struct {
	Fallback []game.Question
	Rand     game.Rand
	Observer Observer
	// Refill is notified, without blocking, when a tier's cached pack was used.
	Refill chan<- game.Tier
}

// Service assembles the question list of a game: custom questions first, then
// AI generated ones, then external trivia APIs, then the built-in bank.
type Service struct {
	custom    CustomStore
	cache     PackCache
	opentdb   opentdbProvider
	triviaAPI triviaProvider
	ai        AIGenerator
	fallback  []game.Question
	observer  Observer
	refill    chan<- game.Tier
	logger    zerolog.Logger

	sf    singleflight.Group
	rngMu sync.Mutex
	rng   game.Rand
}

var _ game.QuestionSource = (*Service)(nil)

// NewService wires the question sources. Any of custom, cache, opentdb, trivia
// and ai may be nil.
func NewService(custom CustomStore, cache PackCache, opentdb opentdbProvider, trivia triviaProvider, ai AIGenerator, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.Fallback == nil {
		opts.Fallback = FallbackBank()
	}
	if opts.Rand == nil {
		opts.Rand = game.NewTimeRand()
	}
	return &Service{
		custom:    custom,
		cache:     cache,
		opentdb:   opentdb,
		triviaAPI: trivia,
		ai:        ai,
		fallback:  opts.Fallback,
		observer:  opts.Observer,
		refill:    opts.Refill,
		logger:    logger.With().Str("component", "question_service").Logger(),
		rng:       opts.Rand,
	}
}

// FetchQuestions returns exactly the tier's question count. Source failures
// are logged and skipped; only an empty fallback bank can make it fail.
func (s *Service) FetchQuestions(ctx context.Context, tier game.Tier) ([]game.Question, error) {
	profile, err := game.ProfileFor(tier)
	if err != nil {
		return nil, err
	}
	count := profile.QuestionCount
	pack := newPackBuilder(count)

	pack.add(tier, SourceCustom, s.customQuestions(ctx, tier, count), s.observer)
	if need := pack.need(); need > 0 {
		pack.add(tier, SourceAI, s.aiQuestions(ctx, tier, need), s.observer)
	}
	if need := pack.need(); need > 0 && ctx.Err() == nil {
		pack.add(tier, SourceOpenTDB, s.openTDBQuestions(ctx, tier, need), s.observer)
	}
	if need := pack.need(); need > 0 && ctx.Err() == nil {
		pack.add(tier, SourceTrivia, s.triviaQuestions(ctx, tier, need), s.observer)
	}
	if need := pack.need(); need > 0 {
		pack.add(tier, SourceFallback, s.fallback, s.observer)
		pack.pad(tier, s.fallback, s.observer)
	}

	if pack.need() > 0 {
		return nil, &game.GenerationError{Tier: tier, Need: count, Got: len(pack.out), Err: ctx.Err()}
	}
	s.logger.Debug().Str("tier", string(tier)).Int("count", count).Msg("question pack assembled")
	return pack.out, nil
}

// Prewarm generates a full AI pack for tier and caches it for the next game.
func (s *Service) Prewarm(ctx context.Context, tier game.Tier) error {
	if s.ai == nil || s.cache == nil {
		return nil
	}
	profile, err := game.ProfileFor(tier)
	if err != nil {
		return err
	}
	qs, err := s.generate(ctx, tier, profile.QuestionCount)
	if err != nil {
		return fmt.Errorf("prewarm %s: %w", tier, err)
	}
	if len(qs) == 0 {
		return fmt.Errorf("prewarm %s: generator returned no valid questions", tier)
	}
	if err := s.cache.Put(ctx, tier, qs); err != nil {
		return fmt.Errorf("cache %s pack: %w", tier, err)
	}
	return nil
}

func (s *Service) customQuestions(ctx context.Context, tier game.Tier, count int) []game.Question {
	if s.custom == nil {
		return nil
	}
	rows, err := s.custom.ListByDifficulty(ctx, CustomDifficulties(tier))
	if err != nil {
		s.logger.Warn().Err(err).Str("tier", string(tier)).Msg("custom questions unavailable")
		return nil
	}
	qs := make([]game.Question, 0, len(rows))
	for _, row := range rows {
		q, err := toGameQuestion(row.Text, row.Options, row.CorrectIndex, row.Difficulty, row.Category)
		if err != nil {
			s.logger.Warn().Err(err).Str("question_id", row.ID.String()).Msg("skipping invalid custom question")
			continue
		}
		qs = append(qs, q)
	}
	s.shuffle(qs)
	if len(qs) > count {
		qs = qs[:count]
	}
	return qs
}

func (s *Service) aiQuestions(ctx context.Context, tier game.Tier, need int) []game.Question {
	var cached []game.Question
	if s.cache != nil {
		taken, err := s.cache.Take(ctx, tier)
		if err != nil {
			s.logger.Warn().Err(err).Str("tier", string(tier)).Msg("question cache read failed")
		}
		cached = validOnly(taken)
		if len(cached) > 0 {
			s.requestRefill(tier)
		}
		if len(cached) >= need {
			return cached[:need]
		}
	}
	// Take consumed the pack; keep what it held and generate only the rest.
	if s.ai == nil {
		return cached
	}
	qs, err := s.generate(ctx, tier, need-len(cached))
	if err != nil {
		s.logger.Warn().Err(err).Str("tier", string(tier)).Int("need", need-len(cached)).Msg("ai generation failed")
		return cached
	}
	return append(cached, qs...)
}

// generate asks the AI for count questions; concurrent identical requests share one call.
func (s *Service) generate(ctx context.Context, tier game.Tier, count int) ([]game.Question, error) {
	key := fmt.Sprintf("%s:%d", tier, count)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		qs, err := s.ai.GeneratePack(ctx, NewGenerateRequest(tier, count))
		if err != nil {
			return nil, err
		}
		return validOnly(qs), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]game.Question(nil), v.([]game.Question)...), nil
}

func (s *Service) openTDBQuestions(ctx context.Context, tier game.Tier, need int) []game.Question {
	if s.opentdb == nil {
		return nil
	}
	raw, err := s.opentdb.Fetch(ctx, need, ExternalDifficulty(tier))
	if err != nil {
		s.logger.Warn().Err(err).Str("tier", string(tier)).Msg("opentdb fetch failed")
		return nil
	}
	qs := make([]game.Question, 0, len(raw))
	for _, r := range raw {
		if q, err := r.Normalize(s.intn(game.OptionCount)); err == nil {
			qs = append(qs, q)
		}
	}
	return qs
}

func (s *Service) triviaQuestions(ctx context.Context, tier game.Tier, need int) []game.Question {
	if s.triviaAPI == nil {
		return nil
	}
	raw, err := s.triviaAPI.Fetch(ctx, need, ExternalDifficulty(tier))
	if err != nil {
		s.logger.Warn().Err(err).Str("tier", string(tier)).Msg("triviaapi fetch failed")
		return nil
	}
	qs := make([]game.Question, 0, len(raw))
	for _, r := range raw {
		if q, err := r.Normalize(s.intn(game.OptionCount)); err == nil {
			qs = append(qs, q)
		}
	}
	return qs
}

func (s *Service) requestRefill(tier game.Tier) {
	if s.refill == nil {
		return
	}
	select {
	case s.refill <- tier:
	default:
	}
}

func (s *Service) shuffle(qs []game.Question) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
}

func (s *Service) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

func validOnly(qs []game.Question) []game.Question {
	out := qs[:0:0]
	for _, q := range qs {
		if q.Validate() == nil {
			out = append(out, q)
		}
	}
	return out
}

// packBuilder collects questions up to a target count, skipping invalid ones
// and repeats of a question text already in the pack.
type packBuilder struct {
	count int
	out   []game.Question
	seen  map[string]bool
}

func newPackBuilder(count int) *packBuilder {
	return &packBuilder{count: count, out: make([]game.Question, 0, count), seen: map[string]bool{}}
}

func (b *packBuilder) need() int {
	return b.count - len(b.out)
}

func (b *packBuilder) add(tier game.Tier, source string, qs []game.Question, obs Observer) {
	added := 0
	for _, q := range qs {
		if b.need() == 0 {
			break
		}
		if q.Validate() != nil {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(q.Text))
		if b.seen[key] {
			continue
		}
		b.seen[key] = true
		b.out = append(b.out, q)
		added++
	}
	if obs != nil && added > 0 {
		obs.QuestionsServed(tier, source, added)
	}
}

// pad cycles through qs, repeats allowed, until the pack is full.
func (b *packBuilder) pad(tier game.Tier, qs []game.Question, obs Observer) {
	valid := validOnly(qs)
	if len(valid) == 0 {
		return
	}
	added := 0
	for i := 0; b.need() > 0; i++ {
		b.out = append(b.out, valid[i%len(valid)])
		added++
	}
	if obs != nil && added > 0 {
		obs.QuestionsServed(tier, SourceFallback, added)
	}
}
