package leaderboard

import (
	"time"

	ws "github.com/gokatarajesh/ladder-quiz/pkg/http/ws"
)

func toWSEntries(entries []Entry) []ws.LeaderboardEntry {
	result := make([]ws.LeaderboardEntry, len(entries))
	for i, e := range entries {
		result[i] = ws.LeaderboardEntry{
			Rank:     i + 1,
			GameID:   e.GameID.String(),
			Tier:     string(e.Tier),
			Winnings: e.Winnings,
			Answered: e.Answered,
			Victory:  e.Victory,
		}
		if !e.FinishedAt.IsZero() {
			result[i].FinishedAt = e.FinishedAt.Format(time.RFC3339)
		}
	}
	return result
}
