// internal/store/postgres.go
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"giftswap/internal/models"
)

// uniqueViolation is the Postgres error code for a unique constraint
// violation.
const uniqueViolation = "23505"

// Postgres is the production Store, backed by a pgx connection pool.
// UUIDs are stored as text; nullable references (current turn, gift
// holder) as NULLable text columns.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool to connString and verifies the
// connection.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

// EnsureSchema creates the tables if they do not exist. Schema changes
// beyond additive table creation are out of scope here.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			owner_id TEXT NOT NULL REFERENCES users(id),
			turn_order TEXT[] NOT NULL DEFAULT '{}',
			current_turn TEXT,
			total_steals INT NOT NULL DEFAULT 0,
			max_steal_per_user INT NOT NULL DEFAULT 0,
			max_steal_per_game INT NOT NULL DEFAULT 0,
			max_steal_per_gift INT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS participants (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL REFERENCES rooms(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			connection TEXT NOT NULL,
			checked_in BOOLEAN NOT NULL DEFAULT FALSE,
			gift_id TEXT,
			steals INT NOT NULL DEFAULT 0,
			joined_at TIMESTAMPTZ NOT NULL,
			UNIQUE (room_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS gifts (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL REFERENCES rooms(id),
			name TEXT NOT NULL,
			added_by TEXT NOT NULL,
			received_by TEXT,
			stolen_count INT NOT NULL DEFAULT 0,
			locked BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS room_logs (
			room_id TEXT NOT NULL REFERENCES rooms(id),
			idx INT NOT NULL,
			action TEXT NOT NULL,
			at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (room_id, idx)
		)`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, created_at) VALUES ($1, $2, $3)`,
		u.ID.String(), u.Name, u.CreatedAt)
	return mapWriteErr(err)
}

func (s *Postgres) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	var rawID string
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM users WHERE id = $1`, id.String()).
		Scan(&rawID, &u.Name, &u.CreatedAt)
	if err != nil {
		return nil, mapReadErr(err)
	}
	u.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("store: corrupt user id %q: %w", rawID, err)
	}
	return &u, nil
}

func (s *Postgres) CreateRoom(ctx context.Context, r *models.Room) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO rooms
			(id, code, status, owner_id, turn_order, current_turn, total_steals,
			 max_steal_per_user, max_steal_per_game, max_steal_per_gift, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID.String(), r.Code, string(r.Status), r.OwnerID.String(),
		idsToStrings(r.TurnOrder), nullableID(r.CurrentTurn), r.TotalSteals,
		r.MaxStealPerUser, r.MaxStealPerGame, r.MaxStealPerGift, r.CreatedAt)
	return mapWriteErr(err)
}

func (s *Postgres) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	var r models.Room
	var rawID, rawOwner string
	var rawTurn *string
	var rawOrder []string
	err := s.pool.QueryRow(ctx,
		`SELECT id, code, status, owner_id, turn_order, current_turn, total_steals,
		        max_steal_per_user, max_steal_per_game, max_steal_per_gift, created_at
		 FROM rooms WHERE code = $1`, code).
		Scan(&rawID, &r.Code, &r.Status, &rawOwner, &rawOrder, &rawTurn, &r.TotalSteals,
			&r.MaxStealPerUser, &r.MaxStealPerGame, &r.MaxStealPerGift, &r.CreatedAt)
	if err != nil {
		return nil, mapReadErr(err)
	}
	if r.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("store: corrupt room id %q: %w", rawID, err)
	}
	if r.OwnerID, err = uuid.Parse(rawOwner); err != nil {
		return nil, fmt.Errorf("store: corrupt owner id %q: %w", rawOwner, err)
	}
	r.CurrentTurn = parseNullableID(rawTurn)
	if r.TurnOrder, err = stringsToIDs(rawOrder); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Postgres) UpdateRoom(ctx context.Context, r *models.Room) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE rooms SET
			status = $2, owner_id = $3, turn_order = $4, current_turn = $5,
			total_steals = $6, max_steal_per_user = $7, max_steal_per_game = $8,
			max_steal_per_gift = $9
		 WHERE id = $1`,
		r.ID.String(), string(r.Status), r.OwnerID.String(),
		idsToStrings(r.TurnOrder), nullableID(r.CurrentTurn), r.TotalSteals,
		r.MaxStealPerUser, r.MaxStealPerGame, r.MaxStealPerGift)
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CreateParticipant(ctx context.Context, p *models.Participant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO participants
			(id, room_id, user_id, name, connection, checked_in, gift_id, steals, joined_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID.String(), p.RoomID.String(), p.UserID.String(), p.Name,
		string(p.Connection), p.CheckedIn, nullableID(p.GiftID), p.Steals, p.JoinedAt)
	return mapWriteErr(err)
}

func (s *Postgres) UpdateParticipant(ctx context.Context, p *models.Participant) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE participants SET
			connection = $2, checked_in = $3, gift_id = $4, steals = $5
		 WHERE id = $1`,
		p.ID.String(), string(p.Connection), p.CheckedIn, nullableID(p.GiftID), p.Steals)
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ListParticipants(ctx context.Context, roomID uuid.UUID) ([]*models.Participant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, room_id, user_id, name, connection, checked_in, gift_id, steals, joined_at
		 FROM participants WHERE room_id = $1 ORDER BY joined_at`, roomID.String())
	if err != nil {
		return nil, fmt.Errorf("store: list participants: %w", err)
	}
	defer rows.Close()

	var out []*models.Participant
	for rows.Next() {
		var p models.Participant
		var rawID, rawRoom, rawUser string
		var rawGift *string
		if err := rows.Scan(&rawID, &rawRoom, &rawUser, &p.Name, &p.Connection,
			&p.CheckedIn, &rawGift, &p.Steals, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("store: scan participant: %w", err)
		}
		if p.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("store: corrupt participant id %q: %w", rawID, err)
		}
		if p.RoomID, err = uuid.Parse(rawRoom); err != nil {
			return nil, fmt.Errorf("store: corrupt room id %q: %w", rawRoom, err)
		}
		if p.UserID, err = uuid.Parse(rawUser); err != nil {
			return nil, fmt.Errorf("store: corrupt user id %q: %w", rawUser, err)
		}
		p.GiftID = parseNullableID(rawGift)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *Postgres) CreateGift(ctx context.Context, g *models.Gift) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO gifts (id, room_id, name, added_by, received_by, stolen_count, locked)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID.String(), g.RoomID.String(), g.Name, g.AddedBy.String(),
		nullableID(g.ReceivedBy), g.StolenCount, g.Locked)
	return mapWriteErr(err)
}

func (s *Postgres) UpdateGift(ctx context.Context, g *models.Gift) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE gifts SET received_by = $2, stolen_count = $3, locked = $4 WHERE id = $1`,
		g.ID.String(), nullableID(g.ReceivedBy), g.StolenCount, g.Locked)
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ListGifts(ctx context.Context, roomID uuid.UUID) ([]*models.Gift, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, room_id, name, added_by, received_by, stolen_count, locked
		 FROM gifts WHERE room_id = $1 ORDER BY id`, roomID.String())
	if err != nil {
		return nil, fmt.Errorf("store: list gifts: %w", err)
	}
	defer rows.Close()

	var out []*models.Gift
	for rows.Next() {
		var g models.Gift
		var rawID, rawRoom, rawAdded string
		var rawReceived *string
		if err := rows.Scan(&rawID, &rawRoom, &g.Name, &rawAdded, &rawReceived,
			&g.StolenCount, &g.Locked); err != nil {
			return nil, fmt.Errorf("store: scan gift: %w", err)
		}
		if g.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("store: corrupt gift id %q: %w", rawID, err)
		}
		if g.RoomID, err = uuid.Parse(rawRoom); err != nil {
			return nil, fmt.Errorf("store: corrupt room id %q: %w", rawRoom, err)
		}
		if g.AddedBy, err = uuid.Parse(rawAdded); err != nil {
			return nil, fmt.Errorf("store: corrupt contributor id %q: %w", rawAdded, err)
		}
		g.ReceivedBy = parseNullableID(rawReceived)
		out = append(out, &g)
	}
	return out, rows.Err()
}

func (s *Postgres) AppendLog(ctx context.Context, e *models.LogEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO room_logs (room_id, idx, action, at) VALUES ($1, $2, $3, $4)`,
		e.RoomID.String(), e.Index, e.Action, e.At)
	return mapWriteErr(err)
}

func (s *Postgres) ListLogs(ctx context.Context, roomID uuid.UUID) ([]models.LogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT idx, action, at FROM room_logs WHERE room_id = $1 ORDER BY idx`,
		roomID.String())
	if err != nil {
		return nil, fmt.Errorf("store: list logs: %w", err)
	}
	defer rows.Close()

	var out []models.LogEntry
	for rows.Next() {
		e := models.LogEntry{RoomID: roomID}
		if err := rows.Scan(&e.Index, &e.Action, &e.At); err != nil {
			return nil, fmt.Errorf("store: scan log entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// mapWriteErr converts unique violations into ErrDuplicate and wraps
// everything else.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return fmt.Errorf("store: write: %w", err)
}

func mapReadErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("store: read: %w", err)
}

func nullableID(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseNullableID(raw *string) uuid.UUID {
	if raw == nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func idsToStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func stringsToIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("store: corrupt turn order entry %q: %w", s, err)
		}
		out[i] = id
	}
	return out, nil
}
