package scene

import (
	"context"
	"errors"
	"time"

	"cogentcore.org/core/math32"
	"go.uber.org/zap"

	"showroom/internal/model"
)

const (
	DefaultFrameInterval    = 16 * time.Millisecond
	DefaultResubscribeDelay = time.Second
)

// Backend is the authoritative room service as seen by the scene.
type Backend interface {
	SubscribeRoom(ctx context.Context, roomID string) (<-chan model.RoomSnapshot, error)
	CommitPosition(ctx context.Context, roomID, object string, pos model.Canonical, userID string) error
}

// Renderer draws frames. Render is called from the View loop and must not block for long.
type Renderer interface {
	Render(Frame)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Frame)

func (f RendererFunc) Render(fr Frame) { f(fr) }

// PointerKind distinguishes rendering surface pointer events.
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
	PointerLeave
)

// PointerEvent is a pointer event from the rendering surface. Target is the
// object under the pointer for PointerDown, as hit-tested by the surface.
type PointerEvent struct {
	Kind   PointerKind
	Target string
	NDC    math32.Vector2
}

// ViewConfig configures a room view.
type ViewConfig struct {
	RoomID   string
	UserID   string
	Camera   Camera
	Entrance Entrance

	FrameInterval    time.Duration
	ResubscribeDelay time.Duration

	// Frames, when set, replaces the internal frame ticker.
	Frames <-chan time.Time
	// Now stamps snapshot arrival; defaults to time.Now.
	Now func() time.Time
}

// View is one mounted room view. All scene state is owned by the Run loop;
// the subscription, pointer input and commit results are funneled into it.
type View struct {
	cfg      ViewConfig
	backend  Backend
	renderer Renderer
	logger   *zap.Logger

	drag *DragController
	rec  *Reconciler

	input   chan PointerEvent
	commits chan error
	done    chan struct{}
}

func NewView(cfg ViewConfig, backend Backend, renderer Renderer, logger *zap.Logger) (*View, error) {
	if cfg.RoomID == "" {
		return nil, errors.New("scene: room id required")
	}
	if backend == nil || renderer == nil {
		return nil, errors.New("scene: backend and renderer required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Camera == (Camera{}) {
		cfg.Camera = DefaultCamera()
	}
	if cfg.Entrance == (Entrance{}) {
		cfg.Entrance = DefaultEntrance()
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.ResubscribeDelay <= 0 {
		cfg.ResubscribeDelay = DefaultResubscribeDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger = logger.With(zap.String("room_id", cfg.RoomID))
	return &View{
		cfg:      cfg,
		backend:  backend,
		renderer: renderer,
		logger:   logger,
		drag:     NewDragController(cfg.Camera, logger),
		rec:      NewReconciler(cfg.Entrance, logger),
		input:    make(chan PointerEvent),
		commits:  make(chan error, 1),
		done:     make(chan struct{}),
	}, nil
}

// Pointer hands a pointer event to the loop and returns once the loop has
// taken it. It returns false once the view has stopped.
func (v *View) Pointer(ev PointerEvent) bool {
	select {
	case v.input <- ev:
		return true
	case <-v.done:
		return false
	}
}

// Done is closed when Run returns.
func (v *View) Done() <-chan struct{} {
	return v.done
}

// Run drives the view until ctx is cancelled. Unmounting abandons any drag in
// progress without committing it. Failures never escape the loop: they are
// logged and the last known state keeps rendering.
func (v *View) Run(ctx context.Context) error {
	defer close(v.done)

	frames := v.cfg.Frames
	if frames == nil {
		ticker := time.NewTicker(v.cfg.FrameInterval)
		defer ticker.Stop()
		frames = ticker.C
	}

	var retry <-chan time.Time
	snaps, err := v.backend.SubscribeRoom(ctx, v.cfg.RoomID)
	if err != nil {
		v.logger.Warn("subscribe room failed", zap.Error(err))
		retry = time.After(v.cfg.ResubscribeDelay)
	}

	for {
		select {
		case <-ctx.Done():
			if st, ok := v.drag.Active(); ok {
				v.drag.Cancel()
				v.logger.Info("drag abandoned on unmount", zap.String("object", st.Object))
			}
			return nil
		case snap, ok := <-snaps:
			if !ok {
				v.logger.Warn("room subscription dropped; rendering last known state")
				snaps = nil
				retry = time.After(v.cfg.ResubscribeDelay)
				continue
			}
			v.apply(snap)
		case <-retry:
			retry = nil
			snaps, err = v.backend.SubscribeRoom(ctx, v.cfg.RoomID)
			if err != nil {
				v.logger.Warn("resubscribe room failed", zap.Error(err))
				retry = time.After(v.cfg.ResubscribeDelay)
				continue
			}
			v.rec.Reset()
		case ev := <-v.input:
			v.handlePointer(ctx, ev)
		case err := <-v.commits:
			v.drag.Resolve(err)
		case now := <-frames:
			v.render(now)
		}
	}
}

func (v *View) apply(snap model.RoomSnapshot) {
	v.rec.Apply(snap, v.cfg.Now())
	st, ok := v.drag.Active()
	if !ok {
		return
	}
	if _, exists := snap.Object(st.Object); !exists && v.drag.Phase() == DragDragging {
		v.drag.Cancel()
		v.logger.Info("dragged object removed by server; drag abandoned", zap.String("object", st.Object))
	}
}

func (v *View) handlePointer(ctx context.Context, ev PointerEvent) {
	switch ev.Kind {
	case PointerDown:
		room, ok := v.rec.Room()
		if !ok {
			return
		}
		obj, ok := room.Object(ev.Target)
		if !ok {
			return
		}
		anchor, ok := v.rec.Pose(ev.Target)
		if !ok {
			return
		}
		v.drag.PointerDown(ev.Target, obj.Position, anchor)
	case PointerMove:
		v.drag.PointerMove(ev.NDC)
	case PointerUp, PointerLeave:
		commit, ok := v.drag.Release()
		if !ok {
			return
		}
		v.logger.Debug("committing position",
			zap.String("object", commit.Object),
			zap.Float64s("from", commit.From[:]),
			zap.Float64s("to", commit.Position[:]),
		)
		go func() {
			v.commits <- v.backend.CommitPosition(ctx, v.cfg.RoomID, commit.Object, commit.Position, v.cfg.UserID)
		}()
	}
}

func (v *View) render(now time.Time) {
	if _, ok := v.rec.Room(); !ok {
		return
	}
	var override *DragState
	if st, ok := v.drag.Active(); ok {
		override = &st
	}
	v.renderer.Render(v.rec.Frame(now, override))
}
