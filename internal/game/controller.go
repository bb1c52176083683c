package game

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/ladder-quiz/internal/game/scoring"
)

const (
	// DefaultIntroDelay is how long the intro plays before the first question.
	DefaultIntroDelay = 2000 * time.Millisecond
	// CutDisplayDelay is how long the cut effect is shown before it applies itself.
	CutDisplayDelay = 1500 * time.Millisecond

	defaultFetchTimeout = 20 * time.Second
)

// QuestionSource supplies the questions of a session. It must return exactly
// the profile's question count or fail, typically with a *GenerationError.
type QuestionSource interface {
	FetchQuestions(ctx context.Context, tier Tier) ([]Question, error)
}

// ControllerOptions tunes a Controller. Zero values select defaults.
type ControllerOptions struct {
	Rand         Rand
	Audio        Audio
	Listener     Listener
	Ladder       *scoring.Ladder
	IntroDelay   time.Duration
	FetchTimeout time.Duration
}

// Controller is the session state machine. It is not safe for concurrent use:
// every method, and every callback it schedules, runs on its Loop.
type Controller struct {
	loop         Loop
	source       QuestionSource
	resolver     *Resolver
	audio        Audio
	listener     Listener
	ladder       *scoring.Ladder
	logger       zerolog.Logger
	introDelay   time.Duration
	fetchTimeout time.Duration

	screen        Screen
	profile       *Profile
	questions     []Question
	index         int
	winnings      int
	lifelines     Availability
	lifelinesUsed int
	round         *Round
	loading       bool
	fetchErr      string
	lastQuestion  *Question

	// epoch changes whenever the session is discarded; async results carry the
	// epoch they were started in and are dropped when it no longer matches.
	epoch       uint64
	cancelIntro func()
	cancelCut   func()
}

// NewController builds a controller on the Splash screen.
func NewController(loop Loop, source QuestionSource, opts ControllerOptions, logger zerolog.Logger) *Controller {
	if opts.Audio == nil {
		opts.Audio = NopAudio{}
	}
	if opts.Listener == nil {
		opts.Listener = NopListener{}
	}
	if opts.Ladder == nil {
		opts.Ladder = scoring.DefaultLadder()
	}
	if opts.IntroDelay <= 0 {
		opts.IntroDelay = DefaultIntroDelay
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	return &Controller{
		loop:         loop,
		source:       source,
		resolver:     NewResolver(opts.Rand),
		audio:        opts.Audio,
		listener:     opts.Listener,
		ladder:       opts.Ladder,
		logger:       logger.With().Str("component", "game_controller").Logger(),
		introDelay:   opts.IntroDelay,
		fetchTimeout: opts.FetchTimeout,
		screen:       ScreenSplash,
		lifelines:    FullAvailability(),
	}
}

// Open starts the splash ambience and publishes the initial state.
func (c *Controller) Open() {
	c.audio.Play(CueBackground, true)
	c.publish()
}

// Close discards the session and silences audio.
func (c *Controller) Close() {
	c.reset()
	c.audio.StopAll()
}

// EnterStudio moves from Splash to difficulty selection.
func (c *Controller) EnterStudio() error {
	if c.screen != ScreenSplash {
		return ErrInvalidTransition
	}
	c.audio.Play(CueClick, false)
	c.screen = ScreenDifficultySelect
	c.publish()
	return nil
}

// Back returns from difficulty selection to Splash.
func (c *Controller) Back() error {
	if c.screen != ScreenDifficultySelect {
		return ErrInvalidTransition
	}
	if c.loading {
		return ErrFetchPending
	}
	c.audio.Play(CueClick, false)
	c.fetchErr = ""
	c.screen = ScreenSplash
	c.publish()
	return nil
}

// ChooseDifficulty fetches questions for tier. The session enters Playing once
// the fetch succeeds and the intro has played; on failure it stays on
// difficulty selection with a retryable error.
func (c *Controller) ChooseDifficulty(tier Tier) error {
	if c.screen != ScreenDifficultySelect {
		return ErrInvalidTransition
	}
	if c.loading {
		return ErrFetchPending
	}
	profile, err := ProfileFor(tier)
	if err != nil {
		return err
	}

	c.audio.Play(CueClick, false)
	c.loading = true
	c.fetchErr = ""
	epoch := c.epoch
	source, timeout := c.source, c.fetchTimeout

	c.logger.Debug().Str("tier", string(tier)).Int("count", profile.QuestionCount).Msg("fetching questions")
	c.loop.Go(func(ctx context.Context) func() {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		questions, err := source.FetchQuestions(ctx, profile.Tier)
		return func() { c.questionsReady(epoch, profile, questions, err) }
	})
	c.publish()
	return nil
}

func (c *Controller) questionsReady(epoch uint64, profile Profile, questions []Question, err error) {
	if epoch != c.epoch || !c.loading {
		c.logger.Debug().Str("tier", string(profile.Tier)).Msg("dropping stale question fetch")
		return
	}
	if err == nil && len(questions) < profile.QuestionCount {
		err = &GenerationError{Tier: profile.Tier, Need: profile.QuestionCount, Got: len(questions)}
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("tier", string(profile.Tier)).Msg("question fetch failed")
		c.loading = false
		c.fetchErr = FetchFailedMessage
		c.publish()
		return
	}

	c.questions = append([]Question(nil), questions[:profile.QuestionCount]...)
	c.profile = &profile
	c.index = 0
	c.winnings = 0
	c.lifelines = FullAvailability()
	c.lifelinesUsed = 0
	c.lastQuestion = nil

	c.audio.Stop(CueBackground)
	c.audio.Play(CueIntro, false)
	c.cancelIntro = c.loop.After(c.introDelay, func() {
		c.cancelIntro = nil
		c.enterPlaying(epoch)
	})
	c.publish()
}

func (c *Controller) enterPlaying(epoch uint64) {
	if epoch != c.epoch || c.profile == nil {
		return
	}
	c.screen = ScreenPlaying
	c.loading = false
	c.audio.Play(CueTension, true)
	c.listener.GameStarted(c.profile.Tier)
	c.logger.Info().Str("tier", string(c.profile.Tier)).Int("questions", len(c.questions)).Msg("game started")
	c.startRound()
	c.publish()
}

func (c *Controller) startRound() {
	var r *Round
	r = newRound(c.loop, c.audio, c.questions[c.index], func(o Outcome) { c.roundFinished(r, o) }, c.publish)
	c.round = r
	r.start(c.profile.TimeLimitSeconds)
}

// SelectOption locks in an answer for the current question.
func (c *Controller) SelectOption(index int) error {
	if c.screen != ScreenPlaying || c.round == nil {
		return ErrInvalidTransition
	}
	return c.round.selectOption(index)
}

// UseLifeline invokes kind on the current question. The lifeline is consumed
// immediately; its effect is shown and applies to the round on dismissal.
func (c *Controller) UseLifeline(kind LifelineKind) error {
	if c.screen != ScreenPlaying || c.round == nil {
		return ErrInvalidTransition
	}
	if !knownLifeline(kind) {
		return ErrUnknownLifeline
	}
	if !c.profile.Allows(kind) {
		return ErrLifelineNotAllowed
	}
	if !c.lifelines.Available(kind) {
		return ErrLifelineUsed
	}
	if err := c.round.canUseLifeline(); err != nil {
		return err
	}
	effect, err := c.resolver.Resolve(kind, c.questions[c.index], *c.profile)
	if err != nil {
		return err
	}

	c.lifelines.consume(kind)
	c.lifelinesUsed++
	c.audio.Play(lifelineCue(kind), false)
	c.listener.LifelineUsed(c.profile.Tier, kind)
	c.round.display(effect)

	if kind == LifelineCutOptions {
		r := c.round
		c.cancelCut = c.loop.After(CutDisplayDelay, func() {
			c.cancelCut = nil
			if c.round == r {
				_ = r.dismiss()
			}
		})
	}
	return nil
}

// DismissLifeline applies the displayed lifeline effect and resumes the timer.
func (c *Controller) DismissLifeline() error {
	if c.screen != ScreenPlaying || c.round == nil {
		return ErrInvalidTransition
	}
	c.stopCutTimer()
	return c.round.dismiss()
}

// Restart discards the finished session and returns to Splash.
func (c *Controller) Restart() error {
	if c.screen != ScreenGameOver && c.screen != ScreenVictory {
		return ErrInvalidTransition
	}
	c.reset()
	c.audio.Play(CueClick, false)
	c.audio.StopAll()
	c.audio.Play(CueBackground, true)
	c.screen = ScreenSplash
	c.publish()
	return nil
}

// SetMuted forwards the mute toggle to the audio port.
func (c *Controller) SetMuted(muted bool) {
	c.audio.SetMuted(muted)
}

func (c *Controller) roundFinished(r *Round, o Outcome) {
	if r != c.round || c.screen != ScreenPlaying {
		return
	}
	c.stopCutTimer()
	r.close()
	q := c.questions[c.index]
	c.lastQuestion = &q

	if !o.Correct {
		c.winnings = c.ladder.GuaranteedFloor(c.winnings)
		c.finish(ScreenGameOver, o.TimedOut)
		return
	}

	c.winnings = c.ladder.PayoutFor(c.index)
	if c.ladder.IsCheckpoint(c.winnings) {
		c.audio.Play(CueCheckpoint, false)
	}
	if c.index+1 >= len(c.questions) {
		c.finish(ScreenVictory, false)
		return
	}
	c.index++
	c.startRound()
	c.publish()
}

func (c *Controller) finish(screen Screen, timedOut bool) {
	c.round = nil
	c.screen = screen
	c.audio.Stop(CueTension)

	answered := c.index
	if screen == ScreenVictory {
		answered = c.index + 1
		c.audio.Play(CueVictory, false)
	}
	result := Result{
		Tier:      c.profile.Tier,
		Winnings:  c.winnings,
		Answered:  answered,
		Victory:   screen == ScreenVictory,
		TimedOut:  timedOut,
		Lifelines: c.lifelinesUsed,
	}
	c.logger.Info().
		Str("tier", string(result.Tier)).
		Int("winnings", result.Winnings).
		Int("answered", result.Answered).
		Bool("victory", result.Victory).
		Bool("timed_out", result.TimedOut).
		Msg("game finished")
	c.listener.GameFinished(result)
	c.publish()
}

// reset cancels everything scheduled for the current session and clears its state.
func (c *Controller) reset() {
	c.epoch++
	if c.cancelIntro != nil {
		c.cancelIntro()
		c.cancelIntro = nil
	}
	c.stopCutTimer()
	if c.round != nil {
		c.round.close()
		c.round = nil
	}
	c.profile = nil
	c.questions = nil
	c.index = 0
	c.winnings = 0
	c.lifelines = FullAvailability()
	c.lifelinesUsed = 0
	c.loading = false
	c.fetchErr = ""
	c.lastQuestion = nil
}

func (c *Controller) stopCutTimer() {
	if c.cancelCut != nil {
		c.cancelCut()
		c.cancelCut = nil
	}
}

func (c *Controller) publish() {
	c.listener.StateChanged(c.Snapshot())
}

// Screen is the current top-level state.
func (c *Controller) Screen() Screen {
	return c.screen
}

// Winnings is the current amount won.
func (c *Controller) Winnings() int {
	return c.winnings
}

// Lifelines is the availability record of the session.
func (c *Controller) Lifelines() Availability {
	return c.lifelines
}

// Round is the active round, nil outside Playing.
func (c *Controller) Round() *Round {
	return c.round
}

// Snapshot captures everything needed to render the session.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		Screen:        c.screen,
		QuestionIndex: c.index,
		QuestionCount: len(c.questions),
		Winnings:      c.winnings,
		Guaranteed:    c.ladder.GuaranteedFloor(c.winnings),
		Lifelines:     c.lifelines,
		Loading:       c.loading,
		Error:         c.fetchErr,
	}
	if c.profile != nil {
		p := *c.profile
		s.Profile = &p
	}
	if c.round != nil {
		rs := c.round.Snapshot()
		s.Round = &rs
	}
	if (c.screen == ScreenGameOver || c.screen == ScreenVictory) && c.lastQuestion != nil {
		s.CorrectAnswer = c.lastQuestion.CorrectAnswer()
	}
	return s
}

func knownLifeline(kind LifelineKind) bool {
	for _, k := range AllLifelines {
		if k == kind {
			return true
		}
	}
	return false
}
