package game

import (
	"fmt"
	"strings"
	"time"
)

// Tier is a difficulty level chosen once per session.
type Tier string

const (
	TierEasy       Tier = "EASY"
	TierMedium     Tier = "MEDIUM"
	TierHard       Tier = "HARD"
	TierImpossible Tier = "IMPOSSIBLE"
)

// Profile is the immutable configuration of a difficulty tier.
type Profile struct {
	Tier             Tier           `json:"tier"`
	Label            string         `json:"label"`
	QuestionCount    int            `json:"question_count"`
	TimeLimitSeconds int            `json:"time_limit_seconds"`
	AllowedLifelines []LifelineKind `json:"allowed_lifelines"`
	FriendAccuracy   float64        `json:"friend_accuracy"`
	Description      string         `json:"description"`
}

// TimeLimit returns the per-question countdown as a duration.
func (p Profile) TimeLimit() time.Duration {
	return time.Duration(p.TimeLimitSeconds) * time.Second
}

// Allows reports whether the tier permits kind at all.
func (p Profile) Allows(kind LifelineKind) bool {
	for _, k := range p.AllowedLifelines {
		if k == kind {
			return true
		}
	}
	return false
}

var profiles = []Profile{
	{
		Tier:             TierEasy,
		Label:            "Easy",
		QuestionCount:    8,
		TimeLimitSeconds: 60,
		AllowedLifelines: []LifelineKind{LifelineCutOptions, LifelineCallFriend, LifelineAskAudience},
		FriendAccuracy:   0.8,
		Description:      "8 Qs • 60s Timer • All Lifelines",
	},
	{
		Tier:             TierMedium,
		Label:            "Medium",
		QuestionCount:    12,
		TimeLimitSeconds: 45,
		AllowedLifelines: []LifelineKind{LifelineCutOptions, LifelineCallFriend, LifelineAskAudience},
		FriendAccuracy:   0.6,
		Description:      "12 Qs • 45s Timer • All Lifelines",
	},
	{
		Tier:             TierHard,
		Label:            "Hard",
		QuestionCount:    15,
		TimeLimitSeconds: 30,
		AllowedLifelines: []LifelineKind{LifelineCutOptions, LifelineCallFriend},
		FriendAccuracy:   0.4,
		Description:      "15 Qs • 30s Timer • No Comments",
	},
	{
		Tier:             TierImpossible,
		Label:            "Impossible",
		QuestionCount:    15,
		TimeLimitSeconds: 20,
		AllowedLifelines: []LifelineKind{LifelineCutOptions},
		FriendAccuracy:   0,
		Description:      "15 Qs • 20s Timer • Only Cut Clip",
	},
}

// Profiles returns every tier in ascending difficulty.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	for i, p := range profiles {
		p.AllowedLifelines = append([]LifelineKind(nil), p.AllowedLifelines...)
		out[i] = p
	}
	return out
}

// ProfileFor looks up the profile of tier.
func ProfileFor(tier Tier) (Profile, error) {
	for _, p := range profiles {
		if p.Tier == tier {
			p.AllowedLifelines = append([]LifelineKind(nil), p.AllowedLifelines...)
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
}

// ParseTier accepts tier names in any case.
func ParseTier(s string) (Tier, error) {
	tier := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if _, err := ProfileFor(tier); err != nil {
		return "", err
	}
	return tier, nil
}
