package game

// Cue names a sound the client may play. Cues are advisory and never awaited.
type Cue string

const (
	CueIntro      Cue = "intro"
	CueCorrect    Cue = "correct"
	CueWrong      Cue = "wrong"
	CueCheckpoint Cue = "checkpoint"
	CueTick       Cue = "tick"
	CueClick      Cue = "click"
	CueVictory    Cue = "victory"
	CueTension    Cue = "tension"
	CueBackground Cue = "bg"
	CueCut        Cue = "cut"
	CuePhone      Cue = "phone"
	CueAudience   Cue = "audience"
	CueLifeline   Cue = "lifeline"
)

// lifelineCue returns the sound played when kind is invoked.
func lifelineCue(kind LifelineKind) Cue {
	switch kind {
	case LifelineCutOptions:
		return CueCut
	case LifelineCallFriend:
		return CuePhone
	case LifelineAskAudience:
		return CueAudience
	}
	return CueLifeline
}

// Audio is the output port for sound. Implementations must not block.
type Audio interface {
	Play(cue Cue, loop bool)
	Stop(cue Cue)
	StopAll()
	SetMuted(muted bool)
}

// NopAudio discards every cue.
type NopAudio struct{}

func (NopAudio) Play(Cue, bool) {}
func (NopAudio) Stop(Cue)       {}
func (NopAudio) StopAll()       {}
func (NopAudio) SetMuted(bool)  {}
