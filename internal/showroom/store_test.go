package showroom

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showroom/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: t0}
	s := NewStore(Options{SessionTTL: ttl, Now: clock.Now}, nil)
	_, err := s.CreateRoom(testDefinition())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, clock
}

func TestStore_CreateRoom(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	room, ok := s.GetRoom("living-room")
	require.True(t, ok)
	assert.Equal(t, model.DefaultCapacity, room.Capacity)

	_, err := s.CreateRoom(testDefinition())
	assert.Error(t, err)
	_, err = s.CreateRoom(RoomDefinition{})
	assert.Error(t, err)

	_, ok = s.GetRoom("nonexistent")
	assert.False(t, ok)
}

func TestStore_UnknownRoom(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	_, err := s.Enter("ghost", "alice")
	assert.ErrorIs(t, err, model.ErrRoomNotFound)
	assert.ErrorIs(t, s.Exit("ghost", "s"), model.ErrRoomNotFound)
	_, err = s.MoveObject("ghost", "sofa", model.Pos(1, 1), "alice")
	assert.ErrorIs(t, err, model.ErrRoomNotFound)
	_, err = s.Snapshot("ghost")
	assert.ErrorIs(t, err, model.ErrRoomNotFound)
}

func TestStore_EnterPublishesSnapshot(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	hub, ok := s.Broadcaster("living-room")
	require.True(t, ok)
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	res, err := s.Enter("living-room", "alice")
	require.NoError(t, err)
	assert.Equal(t, EventStore, <-ch)

	snap, err := s.Snapshot("living-room")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ActiveUserCount)

	require.NoError(t, s.Exit("living-room", res.SessionID))
	assert.Equal(t, EventStore, <-ch)
	require.NoError(t, s.Exit("living-room", res.SessionID), "exit is idempotent")
}

func TestStore_CapacityScenario(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	a, err := s.Enter("living-room", "alice")
	require.NoError(t, err)
	_, err = s.Enter("living-room", "bob")
	require.NoError(t, err)
	_, err = s.Enter("living-room", "carol")
	require.ErrorIs(t, err, model.ErrRoomFull)

	require.NoError(t, s.Exit("living-room", a.SessionID))
	_, err = s.Enter("living-room", "carol")
	require.NoError(t, err)
}

func TestStore_MoveObjectReturnsSnapshot(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	_, err := s.Enter("living-room", "alice")
	require.NoError(t, err)

	snap, err := s.MoveObject("living-room", "lamp", model.Pos(400, 300), "alice")
	require.NoError(t, err)
	obj, _ := snap.Object("lamp")
	assert.Equal(t, model.Pos(400, 300), obj.Position)

	_, err = s.MoveObject("living-room", "lamp", model.Pos(-1, 0), "alice")
	assert.ErrorIs(t, err, model.ErrOutOfBounds)
}

func TestStore_RoomsReapLazily(t *testing.T) {
	s, clock := newTestStore(t, time.Minute)
	_, err := s.CreateRoom(RoomDefinition{ID: "atelier"})
	require.NoError(t, err)
	_, err = s.Enter("living-room", "alice")
	require.NoError(t, err)

	rooms := s.Rooms()
	require.Len(t, rooms, 2)
	assert.Equal(t, "atelier", rooms[0].ID)
	assert.Equal(t, 1, rooms[1].ActiveUserCount)

	clock.Advance(2 * time.Minute)
	rooms = s.Rooms()
	assert.Zero(t, rooms[1].ActiveUserCount)
	assert.True(t, rooms[1].CanEnter)
}

func TestStore_RenewedWatcherOutlivesTTL(t *testing.T) {
	s, clock := newTestStore(t, time.Minute)
	a, err := s.Enter("living-room", "alice")
	require.NoError(t, err)
	b, err := s.Enter("living-room", "bob")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		clock.Advance(40 * time.Second)
		require.NoError(t, s.Renew("living-room", a.SessionID))
		require.NoError(t, s.Renew("living-room", b.SessionID))
	}

	_, err = s.Enter("living-room", "carol")
	assert.ErrorIs(t, err, model.ErrRoomFull, "renewed sessions keep their slots")
	_, err = s.MoveObject("living-room", "sofa", model.Pos(10, 10), "alice")
	assert.NoError(t, err)
}

func TestStore_RenewAfterExpiry(t *testing.T) {
	s, clock := newTestStore(t, time.Minute)
	a, err := s.Enter("living-room", "alice")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	assert.ErrorIs(t, s.Renew("living-room", a.SessionID), model.ErrSessionNotFound)
	assert.ErrorIs(t, s.Renew("ghost", a.SessionID), model.ErrRoomNotFound)

	_, err = s.Enter("living-room", "carol")
	assert.NoError(t, err)
}

func TestStore_ReaperReclaimsAbandonedSession(t *testing.T) {
	s := NewStore(Options{SessionTTL: 30 * time.Millisecond}, nil)
	t.Cleanup(s.Close)
	_, err := s.CreateRoom(testDefinition())
	require.NoError(t, err)
	hub, _ := s.Broadcaster("living-room")
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	_, err = s.Enter("living-room", "alice")
	require.NoError(t, err)
	<-ch

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not publish")
	}
	room, _ := s.GetRoom("living-room")
	assert.Zero(t, room.Occupancy())
	require.Eventually(t, func() bool { return !s.r.Running("living-room") }, 2*time.Second, 5*time.Millisecond)
}

func TestStore_LoadDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	s := NewStore(Options{}, nil)
	t.Cleanup(s.Close)
	require.NoError(t, s.LoadCatalog(c))

	rooms := s.Rooms()
	require.NotEmpty(t, rooms)
	for _, snap := range rooms {
		assert.True(t, snap.CanEnter, snap.ID)
		assert.NotEmpty(t, snap.Models, snap.ID)
	}
	assert.Error(t, s.LoadCatalog(c), "loading twice collides on ids")
}
