// Package session manages a client's room memberships: joining under the
// room's occupancy limit, surfacing rejections, and releasing the slot on
// every exit path.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"showroom/internal/model"
)

const (
	DefaultRedirectDelay = 2 * time.Second
	DefaultLeaveTimeout  = 5 * time.Second
	// DefaultRenewInterval is well inside the server's default session TTL.
	DefaultRenewInterval = 5 * time.Minute
)

// ErrSessionActive is returned when a join is attempted for a room that
// already has a membership in flight or held.
var ErrSessionActive = errors.New("session: membership already active")

var errNoSessionIssued = errors.New("no session issued")

// State is the lifecycle of one room membership.
type State int

const (
	Unjoined State = iota
	Joining
	Joined
	Leaving
)

func (s State) String() string {
	switch s {
	case Unjoined:
		return "unjoined"
	case Joining:
		return "joining"
	case Joined:
		return "joined"
	case Leaving:
		return "leaving"
	}
	return "unknown"
}

// Backend is the room service the manager joins and leaves through.
type Backend interface {
	JoinRoom(ctx context.Context, roomID, userID string) (model.EnterResult, error)
	LeaveRoom(ctx context.Context, roomID, sessionID string) error
	RenewSession(ctx context.Context, roomID, sessionID string) error
}

// Session is a held occupancy slot.
type Session struct {
	RoomID    string
	UserID    string
	ID        string
	Occupancy int
}

// RejectedError reports a failed join. The user is shown Reason and sent
// back to the room list.
type RejectedError struct {
	RoomID string
	Reason string
	Err    error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("join room %s rejected: %s", e.RoomID, e.Reason)
}

func (e *RejectedError) Unwrap() error { return e.Err }

// Options tune rejection handling and cleanup.
type Options struct {
	RedirectDelay time.Duration
	LeaveTimeout  time.Duration
	// RenewInterval is how often a joined session renews its server lease.
	RenewInterval time.Duration

	// OnRejected is called as soon as a join is rejected.
	OnRejected func(*RejectedError)
	// OnRedirect is called RedirectDelay after a rejection.
	OnRedirect func(roomID string)
	// OnLost is called when the server no longer holds a joined session,
	// typically because its lease expired. The membership is already gone.
	OnLost func(Session, error)
	// Schedule runs f after d. Defaults to time.AfterFunc.
	Schedule func(d time.Duration, f func())
}

type membership struct {
	state   State
	session Session
	stop    chan struct{}
}

// Manager tracks memberships keyed by room. It is safe for concurrent use.
type Manager struct {
	backend Backend
	opts    Options
	logger  *zap.Logger

	mu      sync.Mutex
	members map[string]*membership
}

func NewManager(backend Backend, opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RedirectDelay <= 0 {
		opts.RedirectDelay = DefaultRedirectDelay
	}
	if opts.LeaveTimeout <= 0 {
		opts.LeaveTimeout = DefaultLeaveTimeout
	}
	if opts.RenewInterval <= 0 {
		opts.RenewInterval = DefaultRenewInterval
	}
	if opts.Schedule == nil {
		opts.Schedule = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	return &Manager{
		backend: backend,
		opts:    opts,
		logger:  logger,
		members: make(map[string]*membership),
	}
}

// State returns the membership state for a room.
func (m *Manager) State(roomID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem, ok := m.members[roomID]; ok {
		return mem.state
	}
	return Unjoined
}

// Current returns the held session for a room, if joined.
func (m *Manager) Current(roomID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[roomID]
	if !ok || mem.state != Joined {
		return Session{}, false
	}
	return mem.session, true
}

// Enter joins a room. Any join failure is returned as a *RejectedError and
// schedules the redirect; no session is retained.
func (m *Manager) Enter(ctx context.Context, roomID, userID string) (Session, error) {
	m.mu.Lock()
	if _, ok := m.members[roomID]; ok {
		m.mu.Unlock()
		return Session{}, ErrSessionActive
	}
	m.members[roomID] = &membership{state: Joining}
	m.mu.Unlock()

	res, err := m.backend.JoinRoom(ctx, roomID, userID)
	if err == nil && res.SessionID == "" {
		err = errNoSessionIssued
	}
	if err != nil {
		m.mu.Lock()
		delete(m.members, roomID)
		m.mu.Unlock()
		if ctx.Err() != nil {
			return Session{}, fmt.Errorf("join room %s: %w", roomID, ctx.Err())
		}
		rej := &RejectedError{RoomID: roomID, Reason: rejectionReason(err), Err: err}
		m.reject(rej)
		return Session{}, rej
	}

	sess := Session{RoomID: roomID, UserID: userID, ID: res.SessionID, Occupancy: res.ActiveUserCount}
	stop := make(chan struct{})
	m.mu.Lock()
	m.members[roomID] = &membership{state: Joined, session: sess, stop: stop}
	m.mu.Unlock()
	go m.keepAlive(sess, stop)

	m.logger.Info("joined room",
		zap.String("room_id", roomID),
		zap.String("session_id", sess.ID),
		zap.Int("occupancy", sess.Occupancy),
	)
	return sess, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, model.ErrRoomFull):
		return "room is full"
	case errors.Is(err, model.ErrRoomNotFound):
		return "room does not exist"
	case errors.Is(err, model.ErrAlreadyInRoom):
		return "already in this room"
	}
	return err.Error()
}

func (m *Manager) reject(rej *RejectedError) {
	m.logger.Warn("join rejected",
		zap.String("room_id", rej.RoomID),
		zap.String("reason", rej.Reason),
		zap.Duration("redirect_in", m.opts.RedirectDelay),
	)
	if m.opts.OnRejected != nil {
		m.opts.OnRejected(rej)
	}
	if m.opts.OnRedirect != nil {
		roomID := rej.RoomID
		m.opts.Schedule(m.opts.RedirectDelay, func() { m.opts.OnRedirect(roomID) })
	}
}

// Leave releases the room's session. It runs even when ctx is already
// cancelled, bounded by LeaveTimeout. A failed leave is logged and returned
// but not retried: the server reclaims stale sessions on its own. Leaving a
// room that is not joined is a no-op.
func (m *Manager) Leave(ctx context.Context, roomID string) error {
	m.mu.Lock()
	mem, ok := m.members[roomID]
	if !ok || mem.state != Joined {
		m.mu.Unlock()
		return nil
	}
	mem.state = Leaving
	sess := mem.session
	close(mem.stop)
	m.mu.Unlock()

	leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.LeaveTimeout)
	defer cancel()
	err := m.backend.LeaveRoom(leaveCtx, roomID, sess.ID)

	m.mu.Lock()
	delete(m.members, roomID)
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("leave room failed",
			zap.String("room_id", roomID),
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return fmt.Errorf("leave room %s: %w", roomID, err)
	}
	m.logger.Info("left room", zap.String("room_id", roomID), zap.String("session_id", sess.ID))
	return nil
}

// keepAlive renews the session's lease until stop is closed. Transient renew
// failures are retried on the next tick; a session the server no longer
// knows is dropped and reported through OnLost.
func (m *Manager) keepAlive(sess Session, stop <-chan struct{}) {
	ticker := time.NewTicker(m.opts.RenewInterval)
	defer ticker.Stop()
	logger := m.logger.With(zap.String("room_id", sess.RoomID), zap.String("session_id", sess.ID))
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), m.opts.LeaveTimeout)
		err := m.backend.RenewSession(ctx, sess.RoomID, sess.ID)
		cancel()
		if err == nil {
			continue
		}
		if !errors.Is(err, model.ErrSessionNotFound) && !errors.Is(err, model.ErrRoomNotFound) {
			logger.Warn("renew session failed", zap.Error(err))
			continue
		}

		m.mu.Lock()
		mem, ok := m.members[sess.RoomID]
		if !ok || mem.state != Joined || mem.session.ID != sess.ID {
			m.mu.Unlock()
			return
		}
		delete(m.members, sess.RoomID)
		m.mu.Unlock()

		logger.Warn("session lost", zap.Error(err))
		if m.opts.OnLost != nil {
			m.opts.OnLost(sess, err)
		}
		return
	}
}

// Scope joins the room, runs fn with the session, and leaves on every exit
// path, including errors and panics from fn. The leave outcome never replaces
// fn's result.
func (m *Manager) Scope(ctx context.Context, roomID, userID string, fn func(context.Context, Session) error) error {
	sess, err := m.Enter(ctx, roomID, userID)
	if err != nil {
		return err
	}
	defer func() { _ = m.Leave(ctx, roomID) }()
	return fn(ctx, sess)
}
