// internal/session/coordinator.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"giftswap/internal/game"
	"giftswap/internal/models"
	"giftswap/internal/store"
)

// Coordinator errors returned during connection registration.
var (
	ErrConnInProgress = errors.New("session: connection setup already in progress for this user")
	ErrNotInRoom      = errors.New("session: user is not in a room")
)

// Conn is one live client connection. Implemented by *Client; tests
// substitute fakes.
type Conn interface {
	UserID() uuid.UUID
	Name() string
	// Send queues an outbound message. It never blocks on the peer.
	Send(msg ServerMessage)
	// Kick closes the connection with a policy-violation close frame.
	Kick(reason string)
}

// Coordinator maps users to live connections and rooms, enforcing at
// most one live connection per user. Mutating room actions are
// serialized by each Room's own lock; the coordinator's lock only
// guards its session maps and is never held across a game operation or
// a network write.
type Coordinator struct {
	mu       sync.Mutex
	conns    map[uuid.UUID]Conn            // user -> live connection
	userRoom map[uuid.UUID]string          // user -> room code
	joining  map[uuid.UUID]bool            // registration-in-progress guard
	members  map[string]map[uuid.UUID]Conn // room code -> live members
	gates    map[string]*sync.Mutex        // room code -> broadcast gate

	manager *game.Manager
	store   store.Store
}

// NewCoordinator creates a Coordinator over the given room manager and
// entity store.
func NewCoordinator(m *game.Manager, st store.Store) *Coordinator {
	return &Coordinator{
		conns:    make(map[uuid.UUID]Conn),
		userRoom: make(map[uuid.UUID]string),
		joining:  make(map[uuid.UUID]bool),
		members:  make(map[string]map[uuid.UUID]Conn),
		gates:    make(map[string]*sync.Mutex),
		manager:  m,
		store:    st,
	}
}

// Register activates conn as the user's single live connection. Any
// prior connection is force-closed first. The check-then-act sequence
// is guarded per user so two simultaneous connections cannot both
// register.
func (c *Coordinator) Register(conn Conn) error {
	uid := conn.UserID()

	c.mu.Lock()
	if c.joining[uid] {
		c.mu.Unlock()
		return ErrConnInProgress
	}
	c.joining[uid] = true
	prev := c.conns[uid]
	c.mu.Unlock()

	// Close the old socket outside the lock; its disconnect callback
	// sees it is no longer the registered connection and does nothing.
	if prev != nil {
		prev.Kick("connected from another session")
	}

	c.mu.Lock()
	c.conns[uid] = conn
	if code, ok := c.userRoom[uid]; ok {
		if c.members[code] == nil {
			c.members[code] = make(map[uuid.UUID]Conn)
		}
		c.members[code][uid] = conn
	}
	delete(c.joining, uid)
	c.mu.Unlock()

	logrus.WithField("user_id", uid).Debug("connection registered")
	return nil
}

// HandleMessage decodes and dispatches one inbound frame from conn.
// Per-connection reads are sequential, so a single user's actions are
// processed in arrival order.
func (c *Coordinator) HandleMessage(ctx context.Context, conn Conn, raw []byte) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		conn.Send(ackErr("", fmt.Errorf("malformed message: %w", err)))
		return
	}

	var err error
	switch env.Action {
	case models.ActionCreateRoom:
		err = c.createRoom(ctx, conn)
	case models.ActionJoinRoom:
		err = c.joinRoom(ctx, conn, env.Payload)
	case models.ActionLeaveRoom:
		err = c.leaveRoom(ctx, conn)
	case models.ActionGetGameState:
		err = c.getGameState(ctx, conn)
	case models.ActionAddGift:
		err = c.addGift(ctx, conn, env.Payload)
	case models.ActionCheckIn:
		err = c.roomAction(ctx, conn, env.Action, func(r *game.Room) (game.Snapshot, error) {
			return r.CheckIn(ctx, conn.UserID())
		})
	case models.ActionStartChecking:
		err = c.roomAction(ctx, conn, env.Action, func(r *game.Room) (game.Snapshot, error) {
			return r.StartChecking(ctx, conn.UserID())
		})
	case models.ActionStartGame:
		err = c.startGame(ctx, conn, env.Payload)
	case models.ActionPickGift:
		err = c.giftAction(ctx, conn, env.Action, env.Payload, (*game.Room).PickGift)
	case models.ActionStealGift:
		err = c.giftAction(ctx, conn, env.Action, env.Payload, (*game.Room).StealGift)
	default:
		err = fmt.Errorf("unknown action %q", env.Action)
	}

	if err != nil {
		conn.Send(ackErr(env.Action, err))
	}
}

// HandleDisconnect cleans up after conn's read loop ends. If the user
// was in a room they are marked disconnected there and the remaining
// members are told. A connection that was replaced by a newer one
// cleans up nothing.
func (c *Coordinator) HandleDisconnect(ctx context.Context, conn Conn) {
	uid := conn.UserID()

	c.mu.Lock()
	// A replacement registration may be mid-flight; the kicked socket's
	// cleanup must not tear down the session the new one is taking over.
	if c.joining[uid] || c.conns[uid] != conn {
		c.mu.Unlock()
		return
	}
	delete(c.conns, uid)
	code, inRoom := c.userRoom[uid]
	if inRoom {
		delete(c.userRoom, uid)
		delete(c.members[code], uid)
		if len(c.members[code]) == 0 {
			delete(c.members, code)
		}
	}
	c.mu.Unlock()

	if !inRoom {
		return
	}

	room, err := c.manager.RoomByCode(ctx, code)
	if err != nil {
		logrus.WithError(err).WithField("code", code).Warn("disconnect cleanup: room load failed")
		return
	}
	g := c.gate(code)
	g.Lock()
	defer g.Unlock()
	snap, err := room.Leave(ctx, uid)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": uid,
			"code":    code,
		}).Warn("disconnect cleanup: leave failed")
		return
	}
	c.broadcast(code, userLeftMsg(uid), stateMsg(snap), countMsg(c.memberCount(code)))
}

func (c *Coordinator) createRoom(ctx context.Context, conn Conn) error {
	uid := conn.UserID()

	user, err := c.store.GetUser(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return game.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	// A user has one current room; creating a new one leaves the old.
	if err := c.exitRoom(ctx, uid); err != nil && !errors.Is(err, ErrNotInRoom) {
		return err
	}

	room, snap, err := c.manager.CreateRoom(ctx, user)
	if err != nil {
		return err
	}

	c.enterRoom(uid, room.Code, conn)

	g := c.gate(room.Code)
	g.Lock()
	defer g.Unlock()
	conn.Send(ServerMessage{Type: TypeRoomCreated, RoomCode: room.Code})
	c.broadcast(room.Code, userJoinedMsg(uid, user.Name), stateMsg(snap), countMsg(c.memberCount(room.Code)))
	return nil
}

func (c *Coordinator) joinRoom(ctx context.Context, conn Conn, payload json.RawMessage) error {
	var p models.JoinRoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	uid := conn.UserID()

	user, err := c.store.GetUser(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return game.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	code := strings.ToUpper(p.Code)

	// Joining a different room leaves the current one first; rejoining
	// the same room just reactivates the membership.
	c.mu.Lock()
	current, inRoom := c.userRoom[uid]
	c.mu.Unlock()
	if inRoom && current != code {
		if err := c.exitRoom(ctx, uid); err != nil && !errors.Is(err, ErrNotInRoom) {
			return err
		}
	}

	room, err := c.manager.RoomByCode(ctx, code)
	if err != nil {
		return err
	}

	g := c.gate(room.Code)
	g.Lock()
	defer g.Unlock()
	snap, err := room.Join(ctx, user)
	if err != nil {
		return err
	}

	c.enterRoom(uid, room.Code, conn)

	conn.Send(ackOK(models.ActionJoinRoom))
	c.broadcast(room.Code, userJoinedMsg(uid, user.Name), stateMsg(snap), countMsg(c.memberCount(room.Code)))
	return nil
}

func (c *Coordinator) leaveRoom(ctx context.Context, conn Conn) error {
	if err := c.exitRoom(ctx, conn.UserID()); err != nil {
		return err
	}
	conn.Send(ackOK(models.ActionLeaveRoom))
	return nil
}

// exitRoom clears the user's session-map membership, marks them
// disconnected in their room, and tells the remaining members. Every
// path off a room (explicit leave, switching rooms, disconnect) funnels
// through the same Leave semantics.
func (c *Coordinator) exitRoom(ctx context.Context, uid uuid.UUID) error {
	c.mu.Lock()
	code, ok := c.userRoom[uid]
	if ok {
		delete(c.userRoom, uid)
		delete(c.members[code], uid)
		if len(c.members[code]) == 0 {
			delete(c.members, code)
		}
	}
	c.mu.Unlock()
	if !ok {
		return ErrNotInRoom
	}

	room, err := c.manager.RoomByCode(ctx, code)
	if err != nil {
		return err
	}

	g := c.gate(code)
	g.Lock()
	defer g.Unlock()
	snap, err := room.Leave(ctx, uid)
	if err != nil {
		return err
	}
	c.broadcast(code, userLeftMsg(uid), stateMsg(snap), countMsg(c.memberCount(code)))
	return nil
}

func (c *Coordinator) getGameState(ctx context.Context, conn Conn) error {
	room, err := c.roomOf(ctx, conn)
	if err != nil {
		return err
	}
	g := c.gate(room.Code)
	g.Lock()
	defer g.Unlock()
	c.broadcast(room.Code, stateMsg(room.State()))
	return nil
}

func (c *Coordinator) addGift(ctx context.Context, conn Conn, payload json.RawMessage) error {
	var p models.AddGiftPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	if p.Name == "" {
		return fmt.Errorf("gift name must not be empty")
	}
	return c.roomAction(ctx, conn, models.ActionAddGift, func(r *game.Room) (game.Snapshot, error) {
		return r.AddGift(ctx, conn.UserID(), p.Name)
	})
}

func (c *Coordinator) startGame(ctx context.Context, conn Conn, payload json.RawMessage) error {
	var p models.StartGamePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return c.roomAction(ctx, conn, models.ActionStartGame, func(r *game.Room) (game.Snapshot, error) {
		return r.StartGame(ctx, conn.UserID(), p.MaxStealPerUser, p.MaxStealPerGame)
	})
}

func (c *Coordinator) giftAction(ctx context.Context, conn Conn, action models.ActionType, payload json.RawMessage,
	op func(*game.Room, context.Context, uuid.UUID, uuid.UUID) (game.Snapshot, error)) error {
	var p models.GiftActionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return c.roomAction(ctx, conn, action, func(r *game.Room) (game.Snapshot, error) {
		return op(r, ctx, conn.UserID(), p.GiftID)
	})
}

// roomAction resolves the caller's room, runs one mutating operation,
// and on success acks the caller and broadcasts the committed snapshot.
// The room's gate is held from before the operation through the Send
// calls, so snapshots are queued on every member in commit order.
func (c *Coordinator) roomAction(ctx context.Context, conn Conn, action models.ActionType,
	op func(*game.Room) (game.Snapshot, error)) error {
	room, err := c.roomOf(ctx, conn)
	if err != nil {
		return err
	}
	g := c.gate(room.Code)
	g.Lock()
	defer g.Unlock()
	snap, err := op(room)
	if err != nil {
		return err
	}
	conn.Send(ackOK(action))
	c.broadcast(room.Code, stateMsg(snap))
	return nil
}

// roomOf returns the live room the connection's user is in.
func (c *Coordinator) roomOf(ctx context.Context, conn Conn) (*game.Room, error) {
	c.mu.Lock()
	code, ok := c.userRoom[conn.UserID()]
	c.mu.Unlock()
	if !ok {
		return nil, ErrNotInRoom
	}
	return c.manager.RoomByCode(ctx, code)
}

// gate returns the room's broadcast gate, creating it on first use.
// Gates are acquired before the room's own lock and never while holding
// the coordinator lock.
func (c *Coordinator) gate(code string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.gates[code]
	if !ok {
		g = &sync.Mutex{}
		c.gates[code] = g
	}
	return g
}

// enterRoom records the session maps for a successful create/join.
func (c *Coordinator) enterRoom(uid uuid.UUID, code string, conn Conn) {
	c.mu.Lock()
	c.userRoom[uid] = code
	if c.members[code] == nil {
		c.members[code] = make(map[uuid.UUID]Conn)
	}
	c.members[code][uid] = conn
	c.mu.Unlock()
}

// broadcast queues msgs on every live connection in the room.
func (c *Coordinator) broadcast(code string, msgs ...ServerMessage) {
	c.mu.Lock()
	conns := make([]Conn, 0, len(c.members[code]))
	for _, conn := range c.members[code] {
		conns = append(conns, conn)
	}
	c.mu.Unlock()

	for _, conn := range conns {
		for _, msg := range msgs {
			conn.Send(msg)
		}
	}
}

// memberCount is the number of live connections in the room.
func (c *Coordinator) memberCount(code string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.members[code])
}
