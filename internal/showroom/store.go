// Package showroom is the authoritative room registry behind the room server:
// occupancy under a fixed capacity, object placement, and reclamation of
// sessions whose client went away without leaving.
package showroom

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"showroom/internal/model"
	"showroom/pkg/realtime"
)

// EventStore is published whenever a room's snapshot changes.
const EventStore = "store"

// Options configure a Store.
type Options struct {
	Capacity   int
	SessionTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Store holds rooms and delegates to realtime.RoomStore for broadcast and timers.
type Store struct {
	r      *realtime.RoomStore[*Room]
	opts   Options
	logger *zap.Logger
}

// NewStore creates an in-memory room store.
func NewStore(opts Options, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Capacity <= 0 {
		opts.Capacity = model.DefaultCapacity
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = realtime.DefaultLeaseTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	r := realtime.NewRoomStore[*Room]()
	r.SetClock(opts.Now)
	return &Store{r: r, opts: opts, logger: logger}
}

// CreateRoom registers a room from its definition.
func (s *Store) CreateRoom(def RoomDefinition) (*Room, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("create room: empty id")
	}
	room := NewRoom(def, s.opts.Capacity, s.opts.SessionTTL)
	if _, ok := s.r.Create(room.ID, room); !ok {
		return nil, fmt.Errorf("create room %q: already exists", def.ID)
	}
	return room, nil
}

// LoadCatalog creates every room in c.
func (s *Store) LoadCatalog(c Catalog) error {
	for _, def := range c.Rooms {
		if _, err := s.CreateRoom(def); err != nil {
			return err
		}
	}
	s.logger.Info("catalog loaded", zap.Int("rooms", len(c.Rooms)))
	return nil
}

// GetRoom returns a room by ID if it exists.
func (s *Store) GetRoom(id string) (*Room, bool) {
	room, ok := s.r.Get(id)
	if !ok {
		return nil, false
	}
	return room.State, true
}

// Rooms returns snapshots of every room ordered by ID.
func (s *Store) Rooms() []model.RoomSnapshot {
	rooms := s.r.List()
	out := make([]model.RoomSnapshot, 0, len(rooms))
	for _, room := range rooms {
		s.reap(room.State, s.opts.Now())
		out = append(out, room.State.Snapshot())
	}
	return out
}

// Snapshot returns the current state of one room.
func (s *Store) Snapshot(id string) (model.RoomSnapshot, error) {
	room, ok := s.GetRoom(id)
	if !ok {
		return model.RoomSnapshot{}, model.ErrRoomNotFound
	}
	s.reap(room, s.opts.Now())
	return room.Snapshot(), nil
}

// Enter claims an occupancy slot in a room for userID.
func (s *Store) Enter(id, userID string) (model.EnterResult, error) {
	room, ok := s.GetRoom(id)
	if !ok {
		return model.EnterResult{}, model.ErrRoomNotFound
	}
	now := s.opts.Now()
	s.reap(room, now)
	res, err := room.Enter(userID, now)
	if err != nil {
		s.logger.Info("enter rejected", zap.String("room_id", id), zap.String("user_id", userID), zap.Error(err))
		return model.EnterResult{}, err
	}
	s.logger.Info("session opened",
		zap.String("room_id", id),
		zap.String("session_id", res.SessionID),
		zap.Int("occupancy", res.ActiveUserCount),
	)
	s.Publish(id)
	s.EnsureReaper(id)
	return res, nil
}

// Exit releases a session. Unknown sessions are not an error.
func (s *Store) Exit(id, sessionID string) error {
	room, ok := s.GetRoom(id)
	if !ok {
		return model.ErrRoomNotFound
	}
	if !room.Exit(sessionID) {
		return nil
	}
	s.logger.Info("session closed", zap.String("room_id", id), zap.String("session_id", sessionID))
	s.Publish(id)
	s.r.Wake(id)
	return nil
}

// Renew extends a session's lease. A session that already expired reports
// ErrSessionNotFound and the client has lost its slot.
func (s *Store) Renew(id, sessionID string) error {
	room, ok := s.GetRoom(id)
	if !ok {
		return model.ErrRoomNotFound
	}
	if expired := room.ExpireSessions(s.opts.Now()); len(expired) > 0 {
		s.logExpired(id, expired)
		s.Publish(id)
	}
	if err := room.Renew(sessionID, s.opts.Now()); err != nil {
		return err
	}
	s.logger.Debug("session renewed", zap.String("room_id", id), zap.String("session_id", sessionID))
	return nil
}

// MoveObject commits an object's position and returns the resulting snapshot.
func (s *Store) MoveObject(id, name string, pos model.Canonical, userID string) (model.RoomSnapshot, error) {
	room, ok := s.GetRoom(id)
	if !ok {
		return model.RoomSnapshot{}, model.ErrRoomNotFound
	}
	if err := room.MoveObject(name, pos, userID, s.opts.Now()); err != nil {
		return model.RoomSnapshot{}, err
	}
	s.Publish(id)
	return room.Snapshot(), nil
}

// Broadcaster returns the stream broadcaster for a room.
func (s *Store) Broadcaster(id string) (*realtime.Broadcaster, bool) {
	return s.r.Broadcaster(id)
}

// Publish notifies stream subscribers that a room changed.
func (s *Store) Publish(id string) {
	s.r.Publish(id, EventStore)
}

// EnsureReaper starts the lease loop for a room if not already running. The
// loop sleeps until the next lease expiry and stops once the room is empty.
func (s *Store) EnsureReaper(id string) {
	getState := func() *Room {
		room, ok := s.GetRoom(id)
		if !ok {
			return nil
		}
		return room
	}
	tick := func(room *Room, now time.Time) (time.Time, []string, bool) {
		if room == nil {
			return time.Time{}, nil, true
		}
		var events []string
		if expired := room.ExpireSessions(now); len(expired) > 0 {
			s.logExpired(id, expired)
			events = []string{EventStore}
		}
		next, ok := room.NextExpiry()
		return next, events, !ok
	}
	s.r.RunLoop(id, getState, tick)
}

// reap expires stale sessions outside the loop, covering a reaper that
// stopped just as a new session arrived.
func (s *Store) reap(room *Room, now time.Time) {
	if expired := room.ExpireSessions(now); len(expired) > 0 {
		s.logExpired(room.ID, expired)
		s.Publish(room.ID)
	}
}

func (s *Store) logExpired(id string, sessions []string) {
	s.logger.Info("stale sessions reclaimed", zap.String("room_id", id), zap.Strings("session_ids", sessions))
}

// Close stops every reaper and ends every stream.
func (s *Store) Close() {
	s.r.Close()
}
