package showroom

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"showroom/internal/model"
	"showroom/pkg/realtime"
)

// Room is the authoritative state of one showroom: its placed objects and the
// sessions occupying it.
type Room struct {
	mu sync.Mutex

	ID                    string
	Name                  string
	Description           string
	ImageURL              string
	InstalledWidgetID     string
	InstalledWidgetDomain string
	Capacity              int

	objects  []model.PlacedObject
	leases   *realtime.Leases
	sessions map[string]string // session id -> user id
}

// NewRoom builds a room from its catalog definition.
func NewRoom(def RoomDefinition, capacity int, ttl time.Duration) *Room {
	if def.Capacity > 0 {
		capacity = def.Capacity
	}
	if capacity <= 0 {
		capacity = model.DefaultCapacity
	}
	return &Room{
		ID:                    def.ID,
		Name:                  def.Name,
		Description:           def.Description,
		ImageURL:              def.ImageURL,
		InstalledWidgetID:     def.InstalledWidgetID,
		InstalledWidgetDomain: def.InstalledWidgetDomain,
		Capacity:              capacity,
		objects:               append([]model.PlacedObject(nil), def.Models...),
		leases:                realtime.NewLeases(ttl),
		sessions:              make(map[string]string),
	}
}

// Enter grants userID an occupancy slot. A user holds at most one slot: a
// second enter is rejected until the first session exits or expires.
func (r *Room) Enter(userID string, now time.Time) (model.EnterResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireLocked(now)
	if _, ok := r.sessionForLocked(userID); ok {
		return model.EnterResult{}, fmt.Errorf("%w: %s", model.ErrAlreadyInRoom, userID)
	}
	if len(r.sessions) >= r.Capacity {
		return model.EnterResult{}, fmt.Errorf("%w: %d of %d occupied", model.ErrRoomFull, len(r.sessions), r.Capacity)
	}
	id := uuid.NewString()
	r.sessions[id] = userID
	r.leases.Grant(id, now)
	return model.EnterResult{ID: r.ID, SessionID: id, ActiveUserCount: len(r.sessions)}, nil
}

// Exit releases a session. It reports whether the session was held.
func (r *Room) Exit(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	r.dropLocked(sessionID)
	return true
}

// Renew extends a held session's lease. Watching a room without committing
// keeps the slot only as long as the client renews.
func (r *Room) Renew(sessionID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireLocked(now)
	if _, ok := r.sessions[sessionID]; !ok {
		return fmt.Errorf("%w: %s", model.ErrSessionNotFound, sessionID)
	}
	r.leases.Touch(sessionID, now)
	return nil
}

// MoveObject places an object at pos on behalf of userID and renews the
// user's lease.
func (r *Room) MoveObject(name string, pos model.Canonical, userID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireLocked(now)
	sid, ok := r.sessionForLocked(userID)
	if !ok {
		return model.ErrNotInRoom
	}
	idx := -1
	for i, obj := range r.objects {
		if obj.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %q", model.ErrObjectNotFound, name)
	}
	if !pos.InBounds() {
		return fmt.Errorf("%w: [%g, %g]", model.ErrOutOfBounds, pos.X(), pos.Y())
	}
	r.objects[idx].Position = pos
	r.leases.Touch(sid, now)
	return nil
}

// ExpireSessions drops sessions whose lease ran out and returns their ids.
func (r *Room) ExpireSessions(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expireLocked(now)
}

// NextExpiry returns when the next lease runs out.
func (r *Room) NextExpiry() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leases.NextWake()
}

// Occupancy returns the number of sessions held.
func (r *Room) Occupancy() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Snapshot returns a consistent copy of the room's state.
func (r *Room) Snapshot() model.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return model.RoomSnapshot{
		ID:                    r.ID,
		Name:                  r.Name,
		Description:           r.Description,
		ImageURL:              r.ImageURL,
		ActiveUserCount:       len(r.sessions),
		Capacity:              r.Capacity,
		CanEnter:              len(r.sessions) < r.Capacity,
		InstalledWidgetID:     r.InstalledWidgetID,
		InstalledWidgetDomain: r.InstalledWidgetDomain,
		Models:                append([]model.PlacedObject(nil), r.objects...),
	}
}

func (r *Room) expireLocked(now time.Time) []string {
	expired := r.leases.Expire(now)
	for _, id := range expired {
		delete(r.sessions, id)
	}
	return expired
}

func (r *Room) dropLocked(sessionID string) {
	delete(r.sessions, sessionID)
	r.leases.Release(sessionID)
}

func (r *Room) sessionForLocked(userID string) (string, bool) {
	for sid, uid := range r.sessions {
		if uid == userID {
			return sid, true
		}
	}
	return "", false
}
