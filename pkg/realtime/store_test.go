package realtime

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomStore_CreateGet(t *testing.T) {
	s := NewRoomStore[string]()
	_, ok := s.Create("room1", "state1")
	require.True(t, ok)

	room, ok := s.Get("room1")
	require.True(t, ok)
	assert.Equal(t, "room1", room.ID)
	assert.Equal(t, "state1", room.State)

	_, ok = s.Create("room1", "other")
	assert.False(t, ok, "ids are unique")

	_, ok = s.Get("nonexistent")
	assert.False(t, ok)
}

func TestRoomStore_ListIsOrdered(t *testing.T) {
	s := NewRoomStore[int]()
	s.Create("c", 3)
	s.Create("a", 1)
	s.Create("b", 2)

	var ids []string
	for _, r := range s.List() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestRoomStore_Publish(t *testing.T) {
	s := NewRoomStore[string]()
	s.Create("r1", "x")
	hub, ok := s.Broadcaster("r1")
	require.True(t, ok)
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	s.Publish("r1", "store")
	assert.Equal(t, "store", <-ch)
}

func TestRoomStore_UnknownRoomHasNoBroadcaster(t *testing.T) {
	s := NewRoomStore[string]()
	_, ok := s.Broadcaster("ghost")
	assert.False(t, ok)
	s.Publish("ghost", "store")
	assert.Empty(t, s.List(), "publishing does not create rooms")
}

func TestRoomStore_RunLoopPublishesBeforeStopping(t *testing.T) {
	s := NewRoomStore[string]()
	s.Create("r1", "x")
	hub, _ := s.Broadcaster("r1")
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	var ticks atomic.Int32
	s.RunLoop("r1", func() string { return "x" }, func(string, time.Time) (time.Time, []string, bool) {
		if ticks.Add(1) == 1 {
			return time.Now().Add(5 * time.Millisecond), nil, false
		}
		return time.Time{}, []string{"store"}, true
	})

	select {
	case ev := <-ch:
		assert.Equal(t, "store", ev)
	case <-time.After(2 * time.Second):
		t.Fatal("loop never published")
	}
	require.Eventually(t, func() bool { return !s.Running("r1") }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), ticks.Load())
}

func TestRoomStore_WakeRecomputes(t *testing.T) {
	s := NewRoomStore[string]()
	s.Create("r1", "x")

	var ticks atomic.Int32
	s.RunLoop("r1", func() string { return "x" }, func(string, time.Time) (time.Time, []string, bool) {
		ticks.Add(1)
		return time.Now().Add(time.Hour), nil, false
	})
	defer s.Close()

	require.Eventually(t, func() bool { return ticks.Load() == 1 }, time.Second, time.Millisecond)
	s.Wake("r1")
	require.Eventually(t, func() bool { return ticks.Load() == 2 }, time.Second, time.Millisecond)
	assert.True(t, s.Running("r1"))
}

func TestRoomStore_Wake_NoPanicWhenNoLoop(t *testing.T) {
	s := NewRoomStore[string]()
	s.Wake("nonexistent")
}

func TestRoomStore_CloseStopsLoops(t *testing.T) {
	s := NewRoomStore[string]()
	s.Create("r1", "x")
	hub, _ := s.Broadcaster("r1")
	ch := hub.Subscribe()

	s.RunLoop("r1", func() string { return "x" }, func(string, time.Time) (time.Time, []string, bool) {
		return time.Now().Add(time.Hour), nil, false
	})
	require.Eventually(t, func() bool { return s.Running("r1") }, time.Second, time.Millisecond)

	s.Close()
	require.Eventually(t, func() bool { return !s.Running("r1") }, 2*time.Second, 5*time.Millisecond)
	_, open := <-ch
	assert.False(t, open)
}
