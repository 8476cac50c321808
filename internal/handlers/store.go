package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"showroom/internal/model"
	"showroom/internal/showroom"
)

const (
	DefaultKeepAlive      = 25 * time.Second
	DefaultRequestTimeout = 15 * time.Second
)

type StoreHandler struct {
	store     *showroom.Store
	logger    *zap.Logger
	keepAlive time.Duration
	timeout   time.Duration
}

func NewStoreHandler(store *showroom.Store, logger *zap.Logger) *StoreHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreHandler{
		store:     store,
		logger:    logger,
		keepAlive: DefaultKeepAlive,
		timeout:   DefaultRequestTimeout,
	}
}

// RegisterRoutes mounts the room API. The stream route is kept out of the
// request timeout.
func (h *StoreHandler) RegisterRoutes(r chi.Router) {
	r.Route("/stores", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(h.timeout))
			r.Get("/", h.listRooms)
			r.Get("/{id}", h.getRoom)
			r.Post("/{id}/enter", h.enter)
			r.Post("/{id}/exit", h.exit)
			r.Post("/{id}/sessions/{sid}/renew", h.renew)
			r.Post("/{id}/models/{name}/position", h.moveObject)
		})
		r.Get("/{id}/stream", h.stream)
	})
}

func (h *StoreHandler) listRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Rooms())
}

func (h *StoreHandler) getRoom(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Snapshot(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *StoreHandler) enter(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	var req model.EnterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeBadRequest(w, "userId required")
		return
	}
	res, err := h.store.Enter(roomID, req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *StoreHandler) exit(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	var req model.ExitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.store.Exit(roomID, req.SessionID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StoreHandler) renew(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Renew(chi.URLParam(r, "id"), chi.URLParam(r, "sid")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StoreHandler) moveObject(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")
	var req model.PositionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	snap, err := h.store.MoveObject(roomID, name, req.Position, req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *StoreHandler) stream(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	hub, ok := h.store.Broadcaster(roomID)
	if !ok {
		h.writeError(w, r, model.ErrRoomNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	logger := h.logger.With(zap.String("room_id", roomID), zap.String("request_id", middleware.GetReqID(r.Context())))
	sendSnapshot := func() bool {
		snap, err := h.store.Snapshot(roomID)
		if err != nil {
			logger.Warn("stream snapshot failed", zap.Error(err))
			return false
		}
		data, err := json.Marshal(snap)
		if err != nil {
			logger.Error("encode snapshot", zap.Error(err))
			return false
		}
		writeSSE(w, showroom.EventStore, string(data))
		flusher.Flush()
		return true
	}

	if !sendSnapshot() {
		return
	}
	logger.Debug("stream opened", zap.Int("subscribers", hub.Len()))

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, open := <-sub:
			if !open {
				return
			}
			if !sendSnapshot() {
				return
			}
		case <-keepAlive.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		}
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, "invalid request body")
		return false
	}
	return true
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: msg, Code: "bad_request"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrRoomNotFound),
		errors.Is(err, model.ErrObjectNotFound),
		errors.Is(err, model.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrRoomFull),
		errors.Is(err, model.ErrAlreadyInRoom):
		return http.StatusConflict
	case errors.Is(err, model.ErrOutOfBounds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrNotInRoom):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func (h *StoreHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := model.ErrorResponse{Error: err.Error(), Code: model.ErrorCode(err)}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSSE(w http.ResponseWriter, event string, data string) {
	_, _ = w.Write([]byte("event: " + event + "\n"))
	for _, line := range strings.Split(data, "\n") {
		_, _ = w.Write([]byte("data: " + line + "\n"))
	}
	_, _ = w.Write([]byte("\n"))
}
