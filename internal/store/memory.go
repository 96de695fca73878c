// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"giftswap/internal/models"
)

// Memory is an in-process Store used by tests and single-node
// development runs. It applies the same uniqueness rules as the
// Postgres store.
type Memory struct {
	mu           sync.Mutex
	users        map[uuid.UUID]models.User
	usersByName  map[string]uuid.UUID
	rooms        map[uuid.UUID]models.Room
	roomsByCode  map[string]uuid.UUID
	participants map[uuid.UUID]models.Participant
	gifts        map[uuid.UUID]models.Gift
	logs         map[uuid.UUID][]models.LogEntry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:        make(map[uuid.UUID]models.User),
		usersByName:  make(map[string]uuid.UUID),
		rooms:        make(map[uuid.UUID]models.Room),
		roomsByCode:  make(map[string]uuid.UUID),
		participants: make(map[uuid.UUID]models.Participant),
		gifts:        make(map[uuid.UUID]models.Gift),
		logs:         make(map[uuid.UUID][]models.LogEntry),
	}
}

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.usersByName[u.Name]; taken {
		return ErrDuplicate
	}
	m.users[u.ID] = *u
	m.usersByName[u.Name] = u.ID
	return nil
}

func (m *Memory) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) CreateRoom(_ context.Context, r *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.roomsByCode[r.Code]; taken {
		return ErrDuplicate
	}
	m.rooms[r.ID] = cloneRoom(r)
	m.roomsByCode[r.Code] = r.ID
	return nil
}

func (m *Memory) GetRoomByCode(_ context.Context, code string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.roomsByCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	r := m.rooms[id]
	cp := cloneRoom(&r)
	return &cp, nil
}

func (m *Memory) UpdateRoom(_ context.Context, r *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[r.ID]; !ok {
		return ErrNotFound
	}
	m.rooms[r.ID] = cloneRoom(r)
	return nil
}

func (m *Memory) CreateParticipant(_ context.Context, p *models.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.participants {
		if existing.RoomID == p.RoomID && existing.UserID == p.UserID {
			return ErrDuplicate
		}
	}
	m.participants[p.ID] = *p
	return nil
}

func (m *Memory) UpdateParticipant(_ context.Context, p *models.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.participants[p.ID]; !ok {
		return ErrNotFound
	}
	m.participants[p.ID] = *p
	return nil
}

func (m *Memory) ListParticipants(_ context.Context, roomID uuid.UUID) ([]*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Participant
	for _, p := range m.participants {
		if p.RoomID == roomID {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (m *Memory) CreateGift(_ context.Context, g *models.Gift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gifts[g.ID] = *g
	return nil
}

func (m *Memory) UpdateGift(_ context.Context, g *models.Gift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gifts[g.ID]; !ok {
		return ErrNotFound
	}
	m.gifts[g.ID] = *g
	return nil
}

func (m *Memory) ListGifts(_ context.Context, roomID uuid.UUID) ([]*models.Gift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Gift
	for _, g := range m.gifts {
		if g.RoomID == roomID {
			cp := g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (m *Memory) AppendLog(_ context.Context, e *models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.logs[e.RoomID] {
		if existing.Index == e.Index {
			return ErrDuplicate
		}
	}
	m.logs[e.RoomID] = append(m.logs[e.RoomID], *e)
	return nil
}

func (m *Memory) ListLogs(_ context.Context, roomID uuid.UUID) ([]models.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]models.LogEntry, len(m.logs[roomID]))
	copy(entries, m.logs[roomID])
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	return entries, nil
}

// cloneRoom deep-copies the turn order so callers can't alias the
// stored slice.
func cloneRoom(r *models.Room) models.Room {
	cp := *r
	cp.TurnOrder = append([]uuid.UUID(nil), r.TurnOrder...)
	return cp
}
