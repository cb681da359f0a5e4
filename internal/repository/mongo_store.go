package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mines_arena/internal/domain"
	"mines_arena/internal/game"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type roomDoc struct {
	ID         string     `bson:"_id"`
	Code       string     `bson:"code"`
	CreatedAt  time.Time  `bson:"created_at"`
	TimeoutMS  int64      `bson:"timeout_ms"`
	Closed     bool       `bson:"closed"`
	ClosedAt   *time.Time `bson:"closed_at,omitempty"`
	SessionIDs []string   `bson:"session_ids"`
}

type sessionDoc struct {
	ID         string     `bson:"_id"`
	RoomID     string     `bson:"room_id,omitempty"`
	PlayerID   string     `bson:"player_id"`
	BetAmount  string     `bson:"bet_amount"`
	GridSize   int        `bson:"grid_size"`
	Mines      []int      `bson:"mines"`
	Revealed   []int      `bson:"revealed"`
	Multiplier float64    `bson:"multiplier"`
	State      string     `bson:"state"`
	CreatedAt  time.Time  `bson:"created_at"`
	FinishedAt *time.Time `bson:"finished_at,omitempty"`
}

func toRoomDoc(r *domain.Room) roomDoc {
	ids := r.SessionIDs
	if ids == nil {
		ids = []string{}
	}
	return roomDoc{
		ID:         r.ID,
		Code:       r.Code,
		CreatedAt:  r.CreatedAt,
		TimeoutMS:  r.Timeout.Milliseconds(),
		Closed:     r.Closed,
		ClosedAt:   r.ClosedAt,
		SessionIDs: ids,
	}
}

func (d roomDoc) room() *domain.Room {
	ids := d.SessionIDs
	if ids == nil {
		ids = []string{}
	}
	return &domain.Room{
		ID:         d.ID,
		Code:       d.Code,
		CreatedAt:  d.CreatedAt,
		Timeout:    time.Duration(d.TimeoutMS) * time.Millisecond,
		Closed:     d.Closed,
		ClosedAt:   d.ClosedAt,
		SessionIDs: ids,
	}
}

func toSessionDoc(s *game.Session) sessionDoc {
	return sessionDoc{
		ID:         s.ID,
		RoomID:     s.RoomID,
		PlayerID:   s.PlayerID,
		BetAmount:  s.BetAmount.String(),
		GridSize:   s.GridSize,
		Mines:      s.Mines,
		Revealed:   s.Revealed,
		Multiplier: s.Multiplier,
		State:      string(s.State),
		CreatedAt:  s.CreatedAt,
		FinishedAt: s.FinishedAt,
	}
}

func (d sessionDoc) session() (*game.Session, error) {
	bet, err := decimal.NewFromString(d.BetAmount)
	if err != nil {
		return nil, fmt.Errorf("session %s bet amount: %w", d.ID, err)
	}
	revealed := d.Revealed
	if revealed == nil {
		revealed = []int{}
	}
	return &game.Session{
		ID:         d.ID,
		RoomID:     d.RoomID,
		PlayerID:   d.PlayerID,
		BetAmount:  bet,
		GridSize:   d.GridSize,
		Mines:      d.Mines,
		Revealed:   revealed,
		Multiplier: d.Multiplier,
		State:      game.State(d.State),
		CreatedAt:  d.CreatedAt,
		FinishedAt: d.FinishedAt,
	}, nil
}

// MongoStore keeps rooms and sessions in two collections. Room documents carry the ordered
// session id list, so a room and its membership are read in one round trip.
type MongoStore struct {
	db       *mongo.Database
	rooms    *mongo.Collection
	sessions *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:       db,
		rooms:    db.Collection("rooms"),
		sessions: db.Collection("game_sessions"),
	}
}

// EnsureIndexes creates the partial unique index on open room codes.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := m.rooms.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "code", Value: 1}},
			Options: options.Index().
				SetName("open_code").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"closed": false}),
		},
		{
			Keys: bson.D{{Key: "closed", Value: 1}, {Key: "closed_at", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create room indexes: %w", err)
	}

	_, err = m.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "room_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create session indexes: %w", err)
	}
	return nil
}

func (m *MongoStore) Ping(ctx context.Context) error {
	return m.db.Client().Ping(ctx, nil)
}

func (m *MongoStore) CreateRoom(ctx context.Context, room *domain.Room) error {
	_, err := m.rooms.InsertOne(ctx, toRoomDoc(room))
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateCode
	}
	return err
}

func (m *MongoStore) UpdateRoom(ctx context.Context, room *domain.Room) error {
	res, err := m.rooms.UpdateByID(ctx, room.ID, bson.M{"$set": bson.M{
		"closed":    room.Closed,
		"closed_at": room.ClosedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("room %s: %w", room.ID, domain.ErrNotFound)
	}
	return nil
}

func (m *MongoStore) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	var doc roomDoc
	err := m.rooms.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return doc.room(), nil
}

func (m *MongoStore) FindRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "closed", Value: 1}, {Key: "created_at", Value: -1}})

	var doc roomDoc
	err := m.rooms.FindOne(ctx, bson.M{"code": code}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("room with code %s: %w", code, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return doc.room(), nil
}

func (m *MongoStore) ListOpenRooms(ctx context.Context) ([]*domain.Room, error) {
	cursor, err := m.rooms.Find(ctx, bson.M{"closed": false}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var res []*domain.Room
	for cursor.Next(ctx) {
		var doc roomDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		res = append(res, doc.room())
	}
	return res, cursor.Err()
}

func (m *MongoStore) DeleteClosedRoomsBefore(ctx context.Context, before time.Time) (int, error) {
	filter := bson.M{"closed": true, "closed_at": bson.M{"$lt": before}}

	cursor, err := m.rooms.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, err
	}
	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			cursor.Close(ctx)
			return 0, err
		}
		ids = append(ids, doc.ID)
	}
	cursor.Close(ctx)
	if len(ids) == 0 {
		return 0, cursor.Err()
	}

	if _, err := m.sessions.DeleteMany(ctx, bson.M{"room_id": bson.M{"$in": ids}}); err != nil {
		return 0, err
	}
	res, err := m.rooms.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

func (m *MongoStore) CreateSession(ctx context.Context, s *game.Session) error {
	if s.RoomID != "" {
		res, err := m.rooms.UpdateByID(ctx, s.RoomID, bson.M{"$push": bson.M{"session_ids": s.ID}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("room %s: %w", s.RoomID, domain.ErrNotFound)
		}
	}

	if _, err := m.sessions.InsertOne(ctx, toSessionDoc(s)); err != nil {
		if s.RoomID != "" {
			_, _ = m.rooms.UpdateByID(ctx, s.RoomID, bson.M{"$pull": bson.M{"session_ids": s.ID}})
		}
		return err
	}
	return nil
}

func (m *MongoStore) UpdateSession(ctx context.Context, s *game.Session) error {
	res, err := m.sessions.UpdateByID(ctx, s.ID, bson.M{"$set": bson.M{
		"revealed":    s.Revealed,
		"multiplier":  s.Multiplier,
		"state":       string(s.State),
		"finished_at": s.FinishedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("session %s: %w", s.ID, domain.ErrNotFound)
	}
	return nil
}

func (m *MongoStore) GetSession(ctx context.Context, id string) (*game.Session, error) {
	var doc sessionDoc
	err := m.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return doc.session()
}

func (m *MongoStore) ListSessionsByRoom(ctx context.Context, roomID string) ([]*game.Session, error) {
	room, err := m.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if len(room.SessionIDs) == 0 {
		return []*game.Session{}, nil
	}

	cursor, err := m.sessions.Find(ctx, bson.M{"_id": bson.M{"$in": room.SessionIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	byID := make(map[string]*game.Session, len(room.SessionIDs))
	for cursor.Next(ctx) {
		var doc sessionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		s, err := doc.session()
		if err != nil {
			return nil, err
		}
		byID[s.ID] = s
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	res := make([]*game.Session, 0, len(room.SessionIDs))
	for _, id := range room.SessionIDs {
		if s, ok := byID[id]; ok {
			res = append(res, s)
		}
	}
	return res, nil
}
