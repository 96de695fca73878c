// internal/game/manager.go
package game

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"giftswap/internal/cache"
	"giftswap/internal/models"
	"giftswap/internal/store"
)

// codeAlphabet omits the lookalike characters 0/O/1/I/L.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 6

// Manager owns the live Room aggregates, keyed by id and join code.
// A room is hydrated from the store on first access and stays resident
// for the life of the process.
type Manager struct {
	mu     sync.Mutex
	rooms  map[uuid.UUID]*Room
	byCode map[string]*Room

	store  store.Store
	mirror *cache.Cache

	maxStealPerGift int
}

// NewManager creates a Manager over the given store. mirror may be nil.
// maxStealPerGift is the per-gift steal cap applied to every new room.
func NewManager(st store.Store, mirror *cache.Cache, maxStealPerGift int) *Manager {
	return &Manager{
		rooms:           make(map[uuid.UUID]*Room),
		byCode:          make(map[string]*Room),
		store:           st,
		mirror:          mirror,
		maxStealPerGift: maxStealPerGift,
	}
}

// CreateRoom creates a room owned by the given user, with the owner as
// its first participant, and registers it as live. Code collisions are
// retried with a fresh code.
func (m *Manager) CreateRoom(ctx context.Context, owner *models.User) (*Room, Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := &models.Room{
		ID:              uuid.New(),
		Status:          models.RoomNotStarted,
		OwnerID:         owner.ID,
		CurrentTurn:     uuid.Nil,
		MaxStealPerGift: m.maxStealPerGift,
		CreatedAt:       time.Now(),
	}
	for attempt := 0; ; attempt++ {
		rec.Code = newRoomCode()
		err := m.store.CreateRoom(ctx, rec)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrDuplicate) || attempt >= 4 {
			return nil, Snapshot{}, fmt.Errorf("create room: %w", err)
		}
	}

	p := &models.Participant{
		ID:         uuid.New(),
		RoomID:     rec.ID,
		UserID:     owner.ID,
		Name:       owner.Name,
		Connection: models.Connected,
		JoinedAt:   time.Now(),
	}
	if err := m.store.CreateParticipant(ctx, p); err != nil {
		// The room row is already committed. Retire it so the burned
		// code resolves to a finished room instead of an ownerless
		// joinable one.
		rec.Status = models.RoomFinished
		if uerr := m.store.UpdateRoom(ctx, rec); uerr != nil {
			logrus.WithError(uerr).WithField("room_id", rec.ID).Warn("retire orphaned room failed")
		}
		return nil, Snapshot{}, fmt.Errorf("create owner participant: %w", err)
	}

	room := &Room{
		ID:              rec.ID,
		Code:            rec.Code,
		Status:          rec.Status,
		OwnerID:         rec.OwnerID,
		CurrentTurn:     uuid.Nil,
		MaxStealPerGift: rec.MaxStealPerGift,
		CreatedAt:       rec.CreatedAt,
		Participants:    []*models.Participant{p},
		store:           m.store,
		mirror:          m.mirror,
	}
	m.rooms[room.ID] = room
	m.byCode[room.Code] = room

	if err := m.mirror.SetRoomLookup(ctx, room.Code, room.ID); err != nil {
		logrus.WithError(err).WithField("code", room.Code).Warn("room lookup cache set failed")
	}

	logrus.WithFields(logrus.Fields{
		"room_id": room.ID,
		"code":    room.Code,
		"owner":   owner.ID,
	}).Info("room created")

	return room, room.State(), nil
}

// RoomByCode returns the live room with the given join code, loading it
// from the store if this process has not seen it yet. Returns
// ErrRoomNotFound for an unknown code.
func (m *Manager) RoomByCode(ctx context.Context, code string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.byCode[code]; ok {
		return room, nil
	}

	rec, err := m.store.GetRoomByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room %q: %w", code, err)
	}
	room, err := m.hydrate(ctx, rec)
	if err != nil {
		return nil, err
	}
	m.rooms[room.ID] = room
	m.byCode[room.Code] = room
	return room, nil
}

// hydrate rebuilds a live aggregate from its durable records.
func (m *Manager) hydrate(ctx context.Context, rec *models.Room) (*Room, error) {
	participants, err := m.store.ListParticipants(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	gifts, err := m.store.ListGifts(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("load gifts: %w", err)
	}
	logs, err := m.store.ListLogs(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("load logs: %w", err)
	}
	return &Room{
		ID:              rec.ID,
		Code:            rec.Code,
		Status:          rec.Status,
		OwnerID:         rec.OwnerID,
		TurnOrder:       append([]uuid.UUID(nil), rec.TurnOrder...),
		CurrentTurn:     rec.CurrentTurn,
		TotalSteals:     rec.TotalSteals,
		MaxStealPerUser: rec.MaxStealPerUser,
		MaxStealPerGame: rec.MaxStealPerGame,
		MaxStealPerGift: rec.MaxStealPerGift,
		CreatedAt:       rec.CreatedAt,
		Participants:    participants,
		Gifts:           gifts,
		Log:             logs,
		store:           m.store,
		mirror:          m.mirror,
	}, nil
}

// newRoomCode returns a random join code. The alphabet and length give
// roughly one billion codes, enough that collisions are retried rather
// than prevented.
func newRoomCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand does not fail on supported platforms
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
