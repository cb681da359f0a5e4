package service

import (
	"fmt"

	"mines_arena/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrBetTooLow  = fmt.Errorf("%w: bet below minimum", domain.ErrInvalidParameter)
	ErrBetTooHigh = fmt.Errorf("%w: bet exceeds maximum", domain.ErrInvalidParameter)
	ErrInvalidBet = fmt.Errorf("%w: bet must be positive", domain.ErrInvalidParameter)
	ErrBetScale   = fmt.Errorf("%w: bet has more than %d decimal places", domain.ErrInvalidParameter, BetScale)
)

// BetScale is the number of decimal places a bet may carry, the scale of the postgres bet column.
const BetScale = 8

// GameLimits holds bet limits. A zero bound is not enforced.
type GameLimits struct {
	MinBet decimal.Decimal `json:"min_bet"`
	MaxBet decimal.Decimal `json:"max_bet"`
}

// ValidateBet checks if bet is within allowed limits
func (l GameLimits) ValidateBet(bet decimal.Decimal) error {
	if !bet.IsPositive() {
		return ErrInvalidBet
	}
	if !bet.Equal(bet.Truncate(BetScale)) {
		return ErrBetScale
	}
	if l.MinBet.IsPositive() && bet.LessThan(l.MinBet) {
		return ErrBetTooLow
	}
	if l.MaxBet.IsPositive() && bet.GreaterThan(l.MaxBet) {
		return ErrBetTooHigh
	}
	return nil
}
