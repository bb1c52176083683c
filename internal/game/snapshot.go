package game

// Snapshot is the render state of a session at one point in time.
// CorrectAnswer is only set on GameOver and Victory.
type Snapshot struct {
	Screen        Screen         `json:"screen"`
	Profile       *Profile       `json:"profile,omitempty"`
	QuestionIndex int            `json:"question_index"`
	QuestionCount int            `json:"question_count"`
	Winnings      int            `json:"winnings"`
	Guaranteed    int            `json:"guaranteed"`
	Lifelines     Availability   `json:"lifelines"`
	Loading       bool           `json:"loading"`
	Error         string         `json:"error,omitempty"`
	Round         *RoundSnapshot `json:"round,omitempty"`
	CorrectAnswer string         `json:"correct_answer,omitempty"`
}

// RoundSnapshot describes the current question. The correct index is only
// present once the answer has been revealed.
type RoundSnapshot struct {
	Text          string              `json:"text"`
	Options       [OptionCount]string `json:"options"`
	Difficulty    string              `json:"difficulty"`
	Category      string              `json:"category,omitempty"`
	Phase         AnswerPhase         `json:"phase"`
	Selected      *int                `json:"selected,omitempty"`
	CorrectIndex  *int                `json:"correct_index,omitempty"`
	Removed       []int               `json:"removed,omitempty"`
	AudienceVotes *[OptionCount]int   `json:"audience_votes,omitempty"`
	FriendHint    string              `json:"friend_hint,omitempty"`
	TimeRemaining int                 `json:"time_remaining"`
	TimeLimit     int                 `json:"time_limit"`
	TimerState    TimerState          `json:"timer_state"`
	Displayed     *DisplayedLifeline  `json:"displayed,omitempty"`
}

// DisplayedLifeline is a lifeline effect shown to the player but not yet applied.
type DisplayedLifeline struct {
	Kind   LifelineKind `json:"kind"`
	Effect Effect       `json:"effect"`
}

// Result summarizes a finished game.
type Result struct {
	Tier      Tier `json:"tier"`
	Winnings  int  `json:"winnings"`
	Answered  int  `json:"answered"`
	Victory   bool `json:"victory"`
	TimedOut  bool `json:"timed_out"`
	Lifelines int  `json:"lifelines_used"`
}

// Listener observes a session. Calls run on the session loop and must not block.
type Listener interface {
	StateChanged(s Snapshot)
	GameStarted(tier Tier)
	LifelineUsed(tier Tier, kind LifelineKind)
	GameFinished(r Result)
}

// NopListener ignores every notification.
type NopListener struct{}

func (NopListener) StateChanged(Snapshot)           {}
func (NopListener) GameStarted(Tier)                {}
func (NopListener) LifelineUsed(Tier, LifelineKind) {}
func (NopListener) GameFinished(Result)             {}

// Listeners fans every notification out to each listener in order.
type Listeners []Listener

func (ls Listeners) StateChanged(s Snapshot) {
	for _, l := range ls {
		l.StateChanged(s)
	}
}

func (ls Listeners) GameStarted(tier Tier) {
	for _, l := range ls {
		l.GameStarted(tier)
	}
}

func (ls Listeners) LifelineUsed(tier Tier, kind LifelineKind) {
	for _, l := range ls {
		l.LifelineUsed(tier, kind)
	}
}

func (ls Listeners) GameFinished(r Result) {
	for _, l := range ls {
		l.GameFinished(r)
	}
}
