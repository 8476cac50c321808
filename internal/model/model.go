// Package model holds the wire types shared by the room server and the scene engine.
package model

import (
	"errors"
	"math"
)

// Canonical placement canvas. Positions are persisted and broadcast in this space.
const (
	CanvasWidth  = 800
	CanvasHeight = 600
)

// DefaultCapacity is the number of concurrent occupants a room admits.
const DefaultCapacity = 2

var (
	ErrRoomFull        = errors.New("room is full")
	ErrRoomNotFound    = errors.New("room not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrObjectNotFound  = errors.New("object not found")
	ErrOutOfBounds     = errors.New("position outside canvas")
	ErrNotInRoom       = errors.New("user holds no session in room")
	ErrAlreadyInRoom   = errors.New("user already holds a session in room")
)

// Canonical is a 2D placement on the logical canvas, encoded as [x, y].
type Canonical [2]float64

// Pos returns a canonical position.
func Pos(x, y float64) Canonical {
	return Canonical{x, y}
}

func (c Canonical) X() float64 { return c[0] }
func (c Canonical) Y() float64 { return c[1] }

// InBounds reports whether c lies on the canvas (edges included).
func (c Canonical) InBounds() bool {
	if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return false
	}
	return c[0] >= 0 && c[0] <= CanvasWidth && c[1] >= 0 && c[1] <= CanvasHeight
}

// Clamp pulls c onto the canvas. NaN components become 0.
func (c Canonical) Clamp() Canonical {
	return Canonical{clamp(c[0], CanvasWidth), clamp(c[1], CanvasHeight)}
}

// Round snaps c to whole canvas units.
func (c Canonical) Round() Canonical {
	return Canonical{math.Round(c[0]), math.Round(c[1])}
}

func clamp(v, limit float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > limit:
		return limit
	}
	return v
}

// PlacedObject is one 3D asset positioned in a room.
type PlacedObject struct {
	Name          string     `json:"name" yaml:"name"`
	GLBURL        string     `json:"glbUrl" yaml:"glbUrl"`
	Position      Canonical  `json:"position" yaml:"position"`
	Size          [3]float64 `json:"size" yaml:"size"`
	EntranceOrder int        `json:"entranceOrder" yaml:"entranceOrder"`
}

// RoomSnapshot is the full authoritative state of a room as pushed to viewers.
type RoomSnapshot struct {
	ID                    string         `json:"id"`
	Name                  string         `json:"name"`
	Description           string         `json:"description"`
	ImageURL              string         `json:"imageUrl"`
	ActiveUserCount       int            `json:"activeUserCount"`
	Capacity              int            `json:"capacity"`
	CanEnter              bool           `json:"canEnter"`
	InstalledWidgetID     string         `json:"installedWidgetId,omitempty"`
	InstalledWidgetDomain string         `json:"installedWidgetDomain,omitempty"`
	Models                []PlacedObject `json:"models"`
}

// Object looks up a placed object by name.
func (s RoomSnapshot) Object(name string) (PlacedObject, bool) {
	for _, obj := range s.Models {
		if obj.Name == name {
			return obj, true
		}
	}
	return PlacedObject{}, false
}

// EnterResult is returned by a successful join.
type EnterResult struct {
	ID              string `json:"id"`
	SessionID       string `json:"sessionId"`
	ActiveUserCount int    `json:"activeUserCount"`
}

// EnterRequest asks for an occupancy slot.
type EnterRequest struct {
	UserID string `json:"userId"`
}

// ExitRequest releases an occupancy slot.
type ExitRequest struct {
	SessionID string `json:"sessionId"`
}

// PositionRequest commits a new canonical position for an object.
type PositionRequest struct {
	Position Canonical `json:"position"`
	UserID   string    `json:"userId"`
}

// ErrorResponse is the JSON error body returned by the room server.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
