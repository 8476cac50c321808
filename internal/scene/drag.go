package scene

import (
	"cogentcore.org/core/math32"
	"go.uber.org/zap"

	"showroom/internal/model"
)

// DragPhase is the state of the single-pointer drag machine.
type DragPhase int

const (
	DragIdle DragPhase = iota
	DragDragging
	DragCommitting
)

func (p DragPhase) String() string {
	switch p {
	case DragIdle:
		return "idle"
	case DragDragging:
		return "dragging"
	case DragCommitting:
		return "committing"
	}
	return "unknown"
}

// DragState exists only while a gesture owns an object. It is never persisted.
type DragState struct {
	Object string
	// Start is the object's authoritative canonical position at capture.
	Start  model.Canonical
	Anchor math32.Vector3
	// Live is the pointer-derived render position that overrides the object's pose.
	Live math32.Vector3
}

// Commit is the position change a finished drag asks the backend to persist.
// From is the authoritative position the drag started at.
type Commit struct {
	Object   string
	From     model.Canonical
	Position model.Canonical
}

// DragController captures at most one object at a time. It is not safe for
// concurrent use; the View event loop owns it.
type DragController struct {
	camera Camera
	phase  DragPhase
	state  DragState
	logger *zap.Logger
}

func NewDragController(camera Camera, logger *zap.Logger) *DragController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DragController{camera: camera.normalized(), logger: logger}
}

func (d *DragController) Phase() DragPhase {
	return d.phase
}

// Active returns the override that the reconciler must render in place of the
// authoritative pose. It stays active until the commit resolves.
func (d *DragController) Active() (DragState, bool) {
	if d.phase == DragIdle {
		return DragState{}, false
	}
	return d.state, true
}

// PointerDown captures object at its current render pose. start is the
// object's authoritative position, which can differ from the anchor while the
// object is still entering. It is ignored unless the controller is idle.
func (d *DragController) PointerDown(object string, start model.Canonical, anchor math32.Vector3) bool {
	if d.phase != DragIdle {
		d.logger.Debug("pointer down ignored",
			zap.String("object", object),
			zap.String("owner", d.state.Object),
			zap.Stringer("phase", d.phase),
		)
		return false
	}
	d.phase = DragDragging
	d.state = DragState{
		Object: object,
		Start:  start,
		Anchor: anchor,
		Live:   anchor,
	}
	return true
}

// PointerMove re-projects the pointer and overrides the captured object's
// position. The vertical coordinate stays at the anchor's.
func (d *DragController) PointerMove(ndc math32.Vector2) bool {
	if d.phase != DragDragging {
		return false
	}
	d.state.Live = d.camera.Project(ndc, d.state.Anchor.Y)
	return true
}

// Release ends the gesture (pointer up or pointer leaving the surface) and
// returns the canonical position to commit, clamped to the canvas and rounded
// to whole units.
func (d *DragController) Release() (Commit, bool) {
	if d.phase != DragDragging {
		return Commit{}, false
	}
	d.phase = DragCommitting
	pos := ToCanonicalSpace(d.state.Live).Clamp().Round()
	return Commit{Object: d.state.Object, From: d.state.Start, Position: pos}, true
}

// Resolve finishes a commit. Success or failure, the override is dropped and
// the object falls back to whatever the authoritative state says.
func (d *DragController) Resolve(err error) {
	if d.phase != DragCommitting {
		return
	}
	if err != nil {
		d.logger.Warn("commit position failed; reverting to authoritative pose",
			zap.String("object", d.state.Object),
			zap.Float64s("from", d.state.Start[:]),
			zap.Error(err),
		)
	}
	d.phase = DragIdle
	d.state = DragState{}
}

// Cancel abandons any gesture without committing. It reports whether one was active.
func (d *DragController) Cancel() bool {
	if d.phase == DragIdle {
		return false
	}
	d.phase = DragIdle
	d.state = DragState{}
	return true
}
