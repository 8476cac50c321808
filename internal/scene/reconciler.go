package scene

import (
	"time"

	"cogentcore.org/core/math32"
	"go.uber.org/zap"

	"showroom/internal/model"
)

// RenderItem is what the rendering surface draws for one object in one frame.
type RenderItem struct {
	Name     string
	GLBURL   string
	Position math32.Vector3
	Scale    float32
	Dragging bool
	Entering bool
}

// Frame is the complete set of poses for one render pass.
type Frame struct {
	At        time.Time
	RoomID    string
	Occupancy int
	Capacity  int
	Items     []RenderItem
}

// Shared reports whether another user is in the room.
func (f Frame) Shared() bool {
	return f.Occupancy > 1
}

// Item looks up an object's render item by name.
func (f Frame) Item(name string) (RenderItem, bool) {
	for _, it := range f.Items {
		if it.Name == name {
			return it, true
		}
	}
	return RenderItem{}, false
}

// AnimationState tracks one object's entrance for the current visibility session.
type AnimationState struct {
	Start time.Time
	Order int
	Phase Phase
}

// Reconciler merges authoritative snapshots with the active drag override and
// entrance animations. Authoritative data is never mutated; overrides are
// applied on a copy each frame. It is not safe for concurrent use.
type Reconciler struct {
	entrance Entrance
	logger   *zap.Logger

	room    model.RoomSnapshot
	hasRoom bool
	scales  map[string]float32
	visible map[string]struct{}
	anims   map[string]*AnimationState
	last    map[string]RenderItem
}

func NewReconciler(entrance Entrance, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		entrance: entrance,
		logger:   logger,
		scales:   make(map[string]float32),
		visible:  make(map[string]struct{}),
		anims:    make(map[string]*AnimationState),
		last:     make(map[string]RenderItem),
	}
}

// Apply replaces the authoritative view with snap. Objects seen for the first
// time in this visibility session start their entrance at now.
func (r *Reconciler) Apply(snap model.RoomSnapshot, now time.Time) {
	models := append([]model.PlacedObject(nil), snap.Models...)
	snap.Models = models

	present := make(map[string]struct{}, len(models))
	for _, obj := range models {
		present[obj.Name] = struct{}{}
		if _, ok := r.scales[obj.Name]; !ok && Degenerate(obj.Size) {
			r.logger.Warn("degenerate object bounds; using unit scale",
				zap.String("room_id", snap.ID),
				zap.String("object", obj.Name),
				zap.Float64s("size", obj.Size[:]),
			)
		}
		r.scales[obj.Name] = BaseScale(obj.Size)
		if _, seen := r.visible[obj.Name]; seen {
			continue
		}
		r.visible[obj.Name] = struct{}{}
		r.anims[obj.Name] = &AnimationState{Start: now, Order: obj.EntranceOrder, Phase: PhasePending}
	}
	// Prune every per-object map on its own: after Reset, visible no longer
	// lists objects that were drawn before the reset.
	for name := range r.visible {
		if _, ok := present[name]; !ok {
			delete(r.visible, name)
			delete(r.anims, name)
		}
	}
	for name := range r.scales {
		if _, ok := present[name]; !ok {
			delete(r.scales, name)
		}
	}
	for name := range r.last {
		if _, ok := present[name]; !ok {
			delete(r.last, name)
		}
	}
	r.room = snap
	r.hasRoom = true
}

// Reset forgets which objects have been seen so that their entrances replay on
// the next snapshot. The last known room keeps rendering in the meantime.
func (r *Reconciler) Reset() {
	r.visible = make(map[string]struct{})
	r.anims = make(map[string]*AnimationState)
}

// Room returns the last applied snapshot.
func (r *Reconciler) Room() (model.RoomSnapshot, bool) {
	return r.room, r.hasRoom
}

// Animation returns the entrance bookkeeping for an object still entering.
func (r *Reconciler) Animation(name string) (AnimationState, bool) {
	a, ok := r.anims[name]
	if !ok {
		return AnimationState{}, false
	}
	return *a, true
}

// Pose is the position the object was last drawn at, or its authoritative
// pose when no frame has been rendered yet.
func (r *Reconciler) Pose(name string) (math32.Vector3, bool) {
	if it, ok := r.last[name]; ok {
		return it.Position, true
	}
	obj, ok := r.room.Object(name)
	if !ok {
		return math32.Vector3{}, false
	}
	return ToRenderSpace(obj.Position), true
}

// Frame computes the poses to draw at now: authoritative positions, then the
// drag override, then entrance interpolation. A dragged object ends its entrance.
func (r *Reconciler) Frame(now time.Time, drag *DragState) Frame {
	f := Frame{
		At:        now,
		RoomID:    r.room.ID,
		Occupancy: r.room.ActiveUserCount,
		Capacity:  r.room.Capacity,
		Items:     make([]RenderItem, 0, len(r.room.Models)),
	}
	for _, obj := range r.room.Models {
		item := RenderItem{
			Name:     obj.Name,
			GLBURL:   obj.GLBURL,
			Position: ToRenderSpace(obj.Position),
			Scale:    r.scales[obj.Name],
		}
		anim, animating := r.anims[obj.Name]
		switch {
		case drag != nil && drag.Object == obj.Name:
			item.Position = drag.Live
			item.Dragging = true
			if animating {
				delete(r.anims, obj.Name)
			}
		case animating:
			s := r.entrance.Sample(now.Sub(anim.Start), anim.Order, item.Position, item.Scale)
			anim.Phase = s.Phase
			if s.Phase == PhaseComplete {
				delete(r.anims, obj.Name)
				break
			}
			item.Position = s.Position
			item.Scale = s.Scale
			item.Entering = true
		}
		r.last[obj.Name] = item
		f.Items = append(f.Items, item)
	}
	return f
}
