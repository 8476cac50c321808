package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"showroom/internal/model"
	"showroom/internal/showroom"
	"showroom/internal/viewmodel"
	"showroom/views/pages"
)

type HomeHandler struct {
	store *showroom.Store
}

func NewHomeHandler(store *showroom.Store) *HomeHandler {
	return &HomeHandler{store: store}
}

func (h *HomeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Get("/rooms/{id}", h.room)
}

func (h *HomeHandler) home(w http.ResponseWriter, r *http.Request) {
	rooms := h.store.Rooms()
	data := viewmodel.LobbyPage{
		Title: "Showrooms",
		Rooms: make([]viewmodel.RoomCard, 0, len(rooms)),
	}
	for _, snap := range rooms {
		data.Rooms = append(data.Rooms, toRoomCard(snap))
	}
	render(w, r, pages.LobbyPage(data))
}

func (h *HomeHandler) room(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Snapshot(chi.URLParam(r, "id"))
	if errors.Is(err, model.ErrRoomNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "failed to load room", http.StatusInternalServerError)
		return
	}
	data := viewmodel.RoomPage{
		RoomCard: toRoomCard(snap),
		APIURL:   "/stores/" + url.PathEscape(snap.ID),
		Models:   make([]viewmodel.ModelRow, 0, len(snap.Models)),
	}
	for _, m := range snap.Models {
		data.Models = append(data.Models, viewmodel.ModelRow{
			Name:     m.Name,
			GLBURL:   m.GLBURL,
			Position: fmt.Sprintf("%.0f, %.0f", m.Position.X(), m.Position.Y()),
		})
	}
	render(w, r, pages.RoomPage(data))
}

func toRoomCard(snap model.RoomSnapshot) viewmodel.RoomCard {
	return viewmodel.RoomCard{
		ID:          snap.ID,
		Name:        snap.Name,
		Description: snap.Description,
		ImageURL:    snap.ImageURL,
		Occupancy:   snap.ActiveUserCount,
		Capacity:    snap.Capacity,
		CanEnter:    snap.CanEnter,
		ModelCount:  len(snap.Models),
		PageURL:     "/rooms/" + url.PathEscape(snap.ID),
		StreamURL:   "/stores/" + url.PathEscape(snap.ID) + "/stream",
		WidgetID:    snap.InstalledWidgetID,
	}
}
