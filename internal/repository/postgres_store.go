package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mines_arena/internal/domain"
	"mines_arena/internal/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const pgUniqueViolation = "23505"

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

const roomColumns = `r.id, r.code, r.created_at, r.timeout_ms, r.closed, r.closed_at,
	ARRAY(SELECT s.id FROM game_sessions s WHERE s.room_id = r.id ORDER BY s.seq)`

func (p *PostgresStore) CreateRoom(ctx context.Context, room *domain.Room) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO rooms (id, code, created_at, timeout_ms, closed, closed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		room.ID,
		room.Code,
		room.CreatedAt,
		room.Timeout.Milliseconds(),
		room.Closed,
		room.ClosedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "rooms_open_code_idx" {
		return ErrDuplicateCode
	}
	return err
}

func (p *PostgresStore) UpdateRoom(ctx context.Context, room *domain.Room) error {
	tag, err := p.db.Exec(ctx,
		`UPDATE rooms SET closed = $2, closed_at = $3 WHERE id = $1`,
		room.ID, room.Closed, room.ClosedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("room %s: %w", room.ID, domain.ErrNotFound)
	}
	return nil
}

func (p *PostgresStore) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	row := p.db.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms r WHERE r.id = $1`, id)
	room, err := scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
	}
	return room, err
}

func (p *PostgresStore) FindRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	row := p.db.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms r
		 WHERE r.code = $1
		 ORDER BY r.closed ASC, r.created_at DESC
		 LIMIT 1`,
		code,
	)
	room, err := scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("room with code %s: %w", code, domain.ErrNotFound)
	}
	return room, err
}

func (p *PostgresStore) ListOpenRooms(ctx context.Context) ([]*domain.Room, error) {
	rows, err := p.db.Query(ctx, `SELECT `+roomColumns+` FROM rooms r WHERE NOT r.closed ORDER BY r.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, room)
	}
	return res, rows.Err()
}

func (p *PostgresStore) DeleteClosedRoomsBefore(ctx context.Context, before time.Time) (int, error) {
	// sessions go with their room through ON DELETE CASCADE
	tag, err := p.db.Exec(ctx, `DELETE FROM rooms WHERE closed AND closed_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var (
		room      domain.Room
		timeoutMS int64
	)
	if err := row.Scan(&room.ID, &room.Code, &room.CreatedAt, &timeoutMS, &room.Closed, &room.ClosedAt, &room.SessionIDs); err != nil {
		return nil, err
	}
	room.Timeout = time.Duration(timeoutMS) * time.Millisecond
	return &room, nil
}

const sessionColumns = `id, COALESCE(room_id, ''), player_id, bet_amount::text, grid_size, mines, revealed,
	multiplier, state, created_at, finished_at`

func (p *PostgresStore) CreateSession(ctx context.Context, s *game.Session) error {
	var roomID *string
	if s.RoomID != "" {
		roomID = &s.RoomID
	}

	_, err := p.db.Exec(ctx,
		`INSERT INTO game_sessions
			(id, room_id, player_id, bet_amount, grid_size, mines, revealed, multiplier, state, created_at, finished_at)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID,
		roomID,
		s.PlayerID,
		s.BetAmount.String(),
		s.GridSize,
		s.Mines,
		s.Revealed,
		s.Multiplier,
		string(s.State),
		s.CreatedAt,
		s.FinishedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fmt.Errorf("room %s: %w", s.RoomID, domain.ErrNotFound)
	}
	return err
}

func (p *PostgresStore) UpdateSession(ctx context.Context, s *game.Session) error {
	tag, err := p.db.Exec(ctx,
		`UPDATE game_sessions
		 SET revealed = $2, multiplier = $3, state = $4, finished_at = $5
		 WHERE id = $1`,
		s.ID, s.Revealed, s.Multiplier, string(s.State), s.FinishedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", s.ID, domain.ErrNotFound)
	}
	return nil
}

func (p *PostgresStore) GetSession(ctx context.Context, id string) (*game.Session, error) {
	row := p.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return s, err
}

func (p *PostgresStore) ListSessionsByRoom(ctx context.Context, roomID string) ([]*game.Session, error) {
	var exists bool
	if err := p.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, roomID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
	}

	rows, err := p.db.Query(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE room_id = $1 ORDER BY seq`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*game.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func scanSession(row pgx.Row) (*game.Session, error) {
	var (
		s     game.Session
		bet   string
		state string
	)
	if err := row.Scan(&s.ID, &s.RoomID, &s.PlayerID, &bet, &s.GridSize, &s.Mines, &s.Revealed,
		&s.Multiplier, &state, &s.CreatedAt, &s.FinishedAt); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(bet)
	if err != nil {
		return nil, fmt.Errorf("session %s bet amount: %w", s.ID, err)
	}
	s.BetAmount = amount
	s.State = game.State(state)
	if s.Revealed == nil {
		s.Revealed = []int{}
	}
	return &s, nil
}
