package domain

import "github.com/shopspring/decimal"

// LeaderboardEntry is one player's realized payout total within a room.
type LeaderboardEntry struct {
	PlayerID    string          `json:"player_id"`
	TotalPayout decimal.Decimal `json:"total_payout"`
}
