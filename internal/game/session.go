package game

import (
	"fmt"
	"slices"
	"time"

	"mines_arena/internal/domain"

	"github.com/shopspring/decimal"
)

// State of a game session. IN_PROGRESS is the only non-terminal state.
type State string

const (
	StateInProgress State = "IN_PROGRESS"
	StateWon        State = "WON"
	StateLost       State = "LOST"
	StateCashedOut  State = "CASHED_OUT"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s != StateInProgress
}

// Session is one mines game bound to a bet and a player.
// It carries no lock of its own; callers serialize access per session id.
type Session struct {
	ID         string          `json:"id"`
	RoomID     string          `json:"room_id,omitempty"`
	PlayerID   string          `json:"player_id"`
	BetAmount  decimal.Decimal `json:"bet_amount"`
	GridSize   int             `json:"grid_size"`
	Mines      []int           `json:"-"`
	Revealed   []int           `json:"revealed"`
	Multiplier float64         `json:"multiplier"`
	State      State           `json:"state"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// CashoutResult is what a cashout request yields.
type CashoutResult struct {
	SessionID     string          `json:"game_id"`
	BetAmount     decimal.Decimal `json:"bet_amount"`
	CashoutAmount decimal.Decimal `json:"cashout_amount"`
	State         State           `json:"game_state"`
}

// NewSession validates the parameters and places the mines.
func NewSession(id, playerID string, bet decimal.Decimal, mines int, src RandomSource, now time.Time) (*Session, error) {
	if mines < MinMines || mines > MaxMines {
		return nil, fmt.Errorf("%w: mines count must be between %d and %d", domain.ErrInvalidParameter, MinMines, MaxMines)
	}
	if !bet.IsPositive() {
		return nil, fmt.Errorf("%w: bet must be positive", domain.ErrInvalidParameter)
	}

	return &Session{
		ID:         id,
		PlayerID:   playerID,
		BetAmount:  bet,
		GridSize:   GridSize,
		Mines:      PickMines(src, GridSize, mines),
		Revealed:   []int{},
		Multiplier: BaselineMultiplier,
		State:      StateInProgress,
		CreatedAt:  now,
	}, nil
}

// MinesCount is M.
func (s *Session) MinesCount() int { return len(s.Mines) }

// SafeCells is N - M.
func (s *Session) SafeCells() int { return s.GridSize - len(s.Mines) }

func (s *Session) isMine(cell int) bool     { return slices.Contains(s.Mines, cell) }
func (s *Session) isRevealed(cell int) bool { return slices.Contains(s.Revealed, cell) }

// Move reveals a cell. Hitting a mine ends the game with a zero multiplier;
// revealing the last safe cell wins it.
func (s *Session) Move(cell int, now time.Time) (hitMine bool, err error) {
	if s.State != StateInProgress {
		return false, fmt.Errorf("%w: game is %s", domain.ErrIllegalState, s.State)
	}
	if cell < 0 || cell >= s.GridSize {
		return false, fmt.Errorf("%w: cell %d is outside the grid", domain.ErrInvalidMove, cell)
	}
	if s.isRevealed(cell) {
		return false, fmt.Errorf("%w: cell %d already revealed", domain.ErrInvalidMove, cell)
	}

	if s.isMine(cell) {
		s.State = StateLost
		s.Multiplier = 0
		s.finish(now)
		return true, nil
	}

	safeCells := s.SafeCells()
	if len(s.Revealed)+1 > safeCells {
		return false, fmt.Errorf("%w: session %s would reveal %d of %d safe cells",
			domain.ErrInvariantViolation, s.ID, len(s.Revealed)+1, safeCells)
	}

	s.Revealed = append(s.Revealed, cell)
	s.Multiplier = MultiplierFor(s.GridSize, len(s.Mines), len(s.Revealed))

	if len(s.Revealed) == safeCells {
		s.State = StateWon
		s.finish(now)
	}
	return false, nil
}

// Cashout locks in bet × multiplier. Asking with nothing to cash (lost, or no
// reveals yet) returns a zero amount and leaves the session untouched. A won
// session reports its payout without changing; a cashed out one is rejected.
func (s *Session) Cashout(now time.Time) (CashoutResult, error) {
	res := CashoutResult{
		SessionID:     s.ID,
		BetAmount:     s.BetAmount,
		CashoutAmount: decimal.Zero,
	}

	switch {
	case s.State == StateCashedOut:
		return res, fmt.Errorf("%w: game already cashed out", domain.ErrIllegalState)
	case s.State == StateLost, s.State == StateInProgress && len(s.Revealed) == 0:
		// nothing to cash
	case s.State == StateWon:
		res.CashoutAmount = s.payout()
	default:
		res.CashoutAmount = s.payout()
		s.State = StateCashedOut
		s.finish(now)
	}

	res.State = s.State
	return res, nil
}

// Payout is the realized payout: bet × multiplier once won or cashed out, zero otherwise.
func (s *Session) Payout() decimal.Decimal {
	if s.State == StateWon || s.State == StateCashedOut {
		return s.payout()
	}
	return decimal.Zero
}

func (s *Session) payout() decimal.Decimal {
	return s.BetAmount.Mul(decimal.NewFromFloat(s.Multiplier))
}

// NextMultiplier is what the multiplier becomes if the next reveal is safe.
func (s *Session) NextMultiplier() float64 {
	if s.State != StateInProgress || len(s.Revealed) >= s.SafeCells() {
		return s.Multiplier
	}
	return MultiplierFor(s.GridSize, len(s.Mines), len(s.Revealed)+1)
}

func (s *Session) finish(now time.Time) {
	s.FinishedAt = &now
}

// ClientState is the view sent to players. Mines stay hidden until the game ends.
func (s *Session) ClientState() map[string]any {
	state := map[string]any{
		"id":              s.ID,
		"room_id":         s.RoomID,
		"player_id":       s.PlayerID,
		"board_size":      s.GridSize,
		"mines_count":     len(s.Mines),
		"bet_amount":      s.BetAmount,
		"revealed_cells":  s.Revealed,
		"multiplier":      s.Multiplier,
		"next_multiplier": s.NextMultiplier(),
		"state":           s.State,
		"potential_win":   s.payout(),
	}

	if s.State.Terminal() {
		state["mines"] = s.Mines
	}

	return state
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Mines = append([]int(nil), s.Mines...)
	c.Revealed = append([]int{}, s.Revealed...)
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
