package game

import (
	"fmt"
	"math"
	"sort"
)

// Effect is the presentation payload of a lifeline. The concrete types are
// CutEffect, AudienceEffect and FriendEffect.
type Effect interface {
	Kind() LifelineKind
	isEffect()
}

// CutEffect hides two wrong options.
type CutEffect struct {
	Removed [2]int `json:"removed"`
}

func (CutEffect) Kind() LifelineKind { return LifelineCutOptions }
func (CutEffect) isEffect()          {}

// AudienceEffect is a simulated poll in percent per option. It need not sum to 100.
type AudienceEffect struct {
	Votes [OptionCount]int `json:"votes"`
}

func (AudienceEffect) Kind() LifelineKind { return LifelineAskAudience }
func (AudienceEffect) isEffect()          {}

// FriendEffect is the hint a friend gives over the phone.
type FriendEffect struct {
	Hint      string `json:"hint"`
	Suggested int    `json:"suggested"`
}

func (FriendEffect) Kind() LifelineKind { return LifelineCallFriend }
func (FriendEffect) isEffect()          {}

const friendHedge = " ...but honestly, I might be wrong."

// audiencePercent is the share the crowd gives the correct option, by question difficulty.
func audiencePercent(difficulty string) float64 {
	switch difficulty {
	case DifficultyMedium:
		return 60
	case DifficultyHard:
		return 40
	default:
		return 80
	}
}

// Resolver computes lifeline effects. It never mutates the question.
type Resolver struct {
	rng Rand
}

func NewResolver(rng Rand) *Resolver {
	if rng == nil {
		rng = NewTimeRand()
	}
	return &Resolver{rng: rng}
}

// Resolve dispatches to the computation for kind.
func (r *Resolver) Resolve(kind LifelineKind, q Question, profile Profile) (Effect, error) {
	switch kind {
	case LifelineCutOptions:
		return r.Cut(q), nil
	case LifelineAskAudience:
		return r.Audience(q), nil
	case LifelineCallFriend:
		return r.Friend(q, profile.FriendAccuracy), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLifeline, kind)
}

// Cut picks two of the three wrong options to hide.
func (r *Resolver) Cut(q Question) CutEffect {
	wrong := wrongIndices(q.CorrectIndex)
	r.rng.Shuffle(len(wrong), func(i, j int) { wrong[i], wrong[j] = wrong[j], wrong[i] })
	removed := [2]int{wrong[0], wrong[1]}
	sort.Ints(removed[:])
	return CutEffect{Removed: removed}
}

// RawAudienceShares is the poll before noise: the correct option gets the
// difficulty's share and the rest is split evenly.
func RawAudienceShares(q Question) [OptionCount]float64 {
	correct := audiencePercent(q.Difficulty)
	rest := (100 - correct) / float64(OptionCount-1)
	var shares [OptionCount]float64
	for i := range shares {
		if i == q.CorrectIndex {
			shares[i] = correct
		} else {
			shares[i] = rest
		}
	}
	return shares
}

// Audience adds independent noise in [-5, 5) to each raw share and floors at zero.
func (r *Resolver) Audience(q Question) AudienceEffect {
	var eff AudienceEffect
	for i, share := range RawAudienceShares(q) {
		v := int(math.Floor(share + r.rng.Float64()*10 - 5))
		if v < 0 {
			v = 0
		}
		eff.Votes[i] = v
	}
	return eff
}

// Friend names the correct letter with probability accuracy, otherwise a random wrong one.
func (r *Resolver) Friend(q Question, accuracy float64) FriendEffect {
	var eff FriendEffect
	if r.rng.Float64() < accuracy {
		eff.Suggested = q.CorrectIndex
		eff.Hint = fmt.Sprintf("I'm pretty sure it's %s!", OptionLetter(q.CorrectIndex))
	} else {
		wrong := wrongIndices(q.CorrectIndex)
		eff.Suggested = wrong[r.rng.Intn(len(wrong))]
		eff.Hint = fmt.Sprintf("It's definitely %s. I saw a video about this!", OptionLetter(eff.Suggested))
	}
	if accuracy < 0.5 {
		eff.Hint += friendHedge
	}
	return eff
}

func wrongIndices(correct int) []int {
	out := make([]int, 0, OptionCount-1)
	for i := 0; i < OptionCount; i++ {
		if i != correct {
			out = append(out, i)
		}
	}
	return out
}
