package game

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/ladder-quiz/internal/game/gametest"
)

type stubSource struct {
	questions []Question
	err       error
	calls     int
	tiers     []Tier
}

func (s *stubSource) FetchQuestions(_ context.Context, tier Tier) ([]Question, error) {
	s.calls++
	s.tiers = append(s.tiers, tier)
	if s.err != nil {
		return nil, s.err
	}
	return s.questions, nil
}

type recordingAudio struct {
	played  []Cue
	looped  []Cue
	stopped []Cue
	stopAll int
	muted   bool
}

func (a *recordingAudio) Play(cue Cue, loop bool) {
	if loop {
		a.looped = append(a.looped, cue)
		return
	}
	a.played = append(a.played, cue)
}

func (a *recordingAudio) Stop(cue Cue)        { a.stopped = append(a.stopped, cue) }
func (a *recordingAudio) StopAll()            { a.stopAll++ }
func (a *recordingAudio) SetMuted(muted bool) { a.muted = muted }

func (a *recordingAudio) count(cue Cue) int {
	n := 0
	for _, c := range a.played {
		if c == cue {
			n++
		}
	}
	return n
}

type recordingListener struct {
	snapshots []Snapshot
	started   []Tier
	lifelines []LifelineKind
	results   []Result
}

func (l *recordingListener) StateChanged(s Snapshot) { l.snapshots = append(l.snapshots, s) }
func (l *recordingListener) GameStarted(tier Tier)   { l.started = append(l.started, tier) }
func (l *recordingListener) LifelineUsed(_ Tier, kind LifelineKind) {
	l.lifelines = append(l.lifelines, kind)
}
func (l *recordingListener) GameFinished(r Result) { l.results = append(l.results, r) }

// fakeRand replays scripted values; when a script runs out it returns a neutral value.
type fakeRand struct {
	floats []float64
	ints   []int
}

func (f *fakeRand) Float64() float64 {
	if len(f.floats) == 0 {
		return 0.5
	}
	v := f.floats[0]
	f.floats = f.floats[1:]
	return v
}

func (f *fakeRand) Intn(n int) int {
	if len(f.ints) == 0 {
		return 0
	}
	v := f.ints[0]
	f.ints = f.ints[1:]
	return v % n
}

func (f *fakeRand) Shuffle(int, func(i, j int)) {}

func makeQuestions(n int, difficulty string) []Question {
	qs := make([]Question, n)
	for i := range qs {
		qs[i] = Question{
			Text:         fmt.Sprintf("Question %d?", i+1),
			Options:      [OptionCount]string{"Alpha", "Bravo", "Charlie", "Delta"},
			CorrectIndex: i % OptionCount,
			Difficulty:   difficulty,
		}
	}
	return qs
}

type harness struct {
	ctrl     *Controller
	loop     *gametest.ManualLoop
	source   *stubSource
	audio    *recordingAudio
	listener *recordingListener
}

func newHarness(t *testing.T, questions []Question) *harness {
	t.Helper()
	h := &harness{
		loop:     gametest.NewManualLoop(),
		source:   &stubSource{questions: questions},
		audio:    &recordingAudio{},
		listener: &recordingListener{},
	}
	h.ctrl = NewController(h.loop, h.source, ControllerOptions{
		Rand:     NewRand(7),
		Audio:    h.audio,
		Listener: h.listener,
	}, zerolog.New(io.Discard))
	h.ctrl.Open()
	return h
}

// start walks from Splash into Playing on tier.
func (h *harness) start(t *testing.T, tier Tier) {
	t.Helper()
	require.NoError(t, h.ctrl.EnterStudio())
	require.NoError(t, h.ctrl.ChooseDifficulty(tier))
	h.loop.RunPending()
	h.loop.Advance(DefaultIntroDelay)
	require.Equal(t, ScreenPlaying, h.ctrl.Screen())
}

func (h *harness) current() Question {
	return h.ctrl.questions[h.ctrl.index]
}

// answer selects the correct or a wrong option and waits out the resolution.
func (h *harness) answer(t *testing.T, correct bool) {
	t.Helper()
	q := h.current()
	choice := q.CorrectIndex
	if !correct {
		removed := h.ctrl.Round().Removed()
		for i := 1; i < OptionCount; i++ {
			choice = (q.CorrectIndex + i) % OptionCount
			if !containsInt(removed, choice) {
				break
			}
		}
	}
	require.NoError(t, h.ctrl.SelectOption(choice))
	h.loop.Advance(RevealDelay + NotifyDelay)
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
