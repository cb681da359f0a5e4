package service

import (
	"slices"

	"mines_arena/internal/domain"
	"mines_arena/internal/game"
)

// BuildLeaderboard sums realized payouts per player and sorts them descending.
// Players with equal totals keep the order in which they first appear in sessions.
func BuildLeaderboard(sessions []*game.Session) []domain.LeaderboardEntry {
	index := make(map[string]int)
	var entries []domain.LeaderboardEntry

	for _, s := range sessions {
		i, ok := index[s.PlayerID]
		if !ok {
			i = len(entries)
			index[s.PlayerID] = i
			entries = append(entries, domain.LeaderboardEntry{PlayerID: s.PlayerID})
		}
		entries[i].TotalPayout = entries[i].TotalPayout.Add(s.Payout())
	}

	slices.SortStableFunc(entries, func(a, b domain.LeaderboardEntry) int {
		return b.TotalPayout.Cmp(a.TotalPayout)
	})
	return entries
}
