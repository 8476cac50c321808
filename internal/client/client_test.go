package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showroom/internal/model"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{
		BaseURL:             srv.URL,
		Timeout:             2 * time.Second,
		ReconnectInitial:    5 * time.Millisecond,
		ReconnectMaxBackoff: 20 * time.Millisecond,
		ReconnectGiveUp:     500 * time.Millisecond,
	}, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStoreEvent(w http.ResponseWriter, snap model.RoomSnapshot) {
	data, _ := json.Marshal(snap)
	_, _ = fmt.Fprintf(w, "event: store\ndata: %s\n\n", data)
	w.(http.Flusher).Flush()
}

func TestClient_JoinRoom(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/stores/living-room/enter", r.URL.Path)
		var req model.EnterRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.UserID)
		writeJSON(w, http.StatusOK, model.EnterResult{ID: "living-room", SessionID: "s-1", ActiveUserCount: 1})
	}))

	res, err := c.JoinRoom(context.Background(), "living-room", "alice")
	require.NoError(t, err)
	assert.Equal(t, model.EnterResult{ID: "living-room", SessionID: "s-1", ActiveUserCount: 1}, res)
}

func TestClient_JoinRoomFull(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, model.ErrorResponse{Error: "room is full", Code: "room_full"})
	}))

	_, err := c.JoinRoom(context.Background(), "living-room", "carol")
	require.ErrorIs(t, err, model.ErrRoomFull)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusConflict, se.Code)
}

func TestClient_ErrorWithoutBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	err := c.LeaveRoom(context.Background(), "living-room", "s-1")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
}

func TestClient_LeaveRoom(t *testing.T) {
	var got model.ExitRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stores/living-room/exit", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, c.LeaveRoom(context.Background(), "living-room", "s-1"))
	assert.Equal(t, "s-1", got.SessionID)
}

func TestClient_RenewSession(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if r.URL.Path == "/stores/living-room/sessions/s-1/renew" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: "session not found", Code: "session_not_found"})
	}))

	require.NoError(t, c.RenewSession(context.Background(), "living-room", "s-1"))
	err := c.RenewSession(context.Background(), "living-room", "s-2")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestClient_CommitPosition(t *testing.T) {
	var got model.PositionRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stores/living-room/models/floor lamp/position", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, model.RoomSnapshot{ID: "living-room"})
	}))

	require.NoError(t, c.CommitPosition(context.Background(), "living-room", "floor lamp", model.Pos(400, 300), "alice"))
	assert.Equal(t, model.PositionRequest{Position: model.Pos(400, 300), UserID: "alice"}, got)
}

func TestClient_CommitPositionRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, model.ErrorResponse{Error: "position outside canvas: [900, 0]", Code: "out_of_bounds"})
	}))

	err := c.CommitPosition(context.Background(), "living-room", "sofa", model.Pos(900, 0), "alice")
	assert.ErrorIs(t, err, model.ErrOutOfBounds)
}

func TestClient_RoomsAndRoom(t *testing.T) {
	rooms := []model.RoomSnapshot{{ID: "a", Capacity: 2, CanEnter: true}, {ID: "b", Capacity: 2}}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stores":
			writeJSON(w, http.StatusOK, rooms)
		case "/stores/a":
			writeJSON(w, http.StatusOK, rooms[0])
		default:
			writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: "room not found", Code: "room_not_found"})
		}
	}))

	got, err := c.Rooms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rooms, got)

	one, err := c.Room(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, rooms[0], one)

	_, err = c.Room(context.Background(), "zzz")
	assert.ErrorIs(t, err, model.ErrRoomNotFound)
}

func TestClient_SubscribeRoomReconnects(t *testing.T) {
	var conns atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stores/living-room/stream", r.URL.Path)
		n := conns.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(": keepalive\n\n"))
		writeStoreEvent(w, model.RoomSnapshot{ID: "living-room", ActiveUserCount: int(n)})
		if n == 1 {
			_, _ = w.Write([]byte("event: store\ndata: {not json\n\n"))
			writeStoreEvent(w, model.RoomSnapshot{ID: "living-room", ActiveUserCount: 10})
			return
		}
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := c.SubscribeRoom(ctx, "living-room")
	require.NoError(t, err)

	var counts []int
	for len(counts) < 3 {
		select {
		case snap, ok := <-ch:
			require.True(t, ok)
			counts = append(counts, snap.ActiveUserCount)
		case <-time.After(2 * time.Second):
			t.Fatalf("stalled after %v", counts)
		}
	}
	assert.Equal(t, []int{1, 10, 2}, counts, "malformed events are skipped and the stream resumes after a drop")

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestClient_SubscribeUnknownRoomFailsFast(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: "room not found", Code: "room_not_found"})
	}))

	_, err := c.SubscribeRoom(context.Background(), "ghost")
	assert.ErrorIs(t, err, model.ErrRoomNotFound)
}

func TestClient_SubscribeGivesUpWhenRoomDisappears(t *testing.T) {
	var conns atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if conns.Add(1) > 1 {
			writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: "room not found", Code: "room_not_found"})
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		writeStoreEvent(w, model.RoomSnapshot{ID: "living-room"})
	}))

	ch, err := c.SubscribeRoom(context.Background(), "living-room")
	require.NoError(t, err)
	<-ch

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
	assert.Equal(t, int32(2), conns.Load(), "not-found is not retried")
}
