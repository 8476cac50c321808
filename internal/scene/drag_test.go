package scene

import (
	"errors"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showroom/internal/model"
)

func TestDragController_CenterReleaseCommitsSceneCenter(t *testing.T) {
	d := NewDragController(DefaultCamera(), nil)
	anchor := ToRenderSpace(model.Pos(400, 300))

	require.True(t, d.PointerDown("A", model.Pos(400, 300), anchor))
	require.True(t, d.PointerMove(math32.Vec2(0, 0)))

	commit, ok := d.Release()
	require.True(t, ok)
	assert.Equal(t, "A", commit.Object)
	assert.Equal(t, model.Pos(400, 300), commit.Position)
	assert.Equal(t, DragCommitting, d.Phase())
}

func TestDragController_SecondObjectIgnoredWhileDragging(t *testing.T) {
	d := NewDragController(DefaultCamera(), nil)
	require.True(t, d.PointerDown("A", model.Pos(100, 100), ToRenderSpace(model.Pos(100, 100))))

	assert.False(t, d.PointerDown("B", model.Pos(700, 500), ToRenderSpace(model.Pos(700, 500))))
	st, ok := d.Active()
	require.True(t, ok)
	assert.Equal(t, "A", st.Object)
	assert.Equal(t, DragDragging, d.Phase())

	_, _ = d.Release()
	assert.False(t, d.PointerDown("B", model.Pos(700, 500), ToRenderSpace(model.Pos(700, 500))), "still committing")

	d.Resolve(nil)
	assert.True(t, d.PointerDown("B", model.Pos(700, 500), ToRenderSpace(model.Pos(700, 500))))
}

func TestDragController_MoveHoldsElevation(t *testing.T) {
	d := NewDragController(DefaultCamera(), nil)
	anchor := math32.Vec3(1, 0.75, 1)
	require.True(t, d.PointerDown("lamp", model.Pos(500, 400), anchor))

	d.PointerMove(math32.Vec2(0.5, -0.5))
	st, _ := d.Active()
	assert.InDelta(t, 0.75, st.Live.Y, 1e-6)
	assert.InDelta(t, 2, st.Live.X, 1e-4)
	assert.InDelta(t, 1.5, st.Live.Z, 1e-4)
	assert.Equal(t, anchor, st.Anchor)
	assert.Equal(t, model.Pos(500, 400), st.Start)
}

func TestDragController_ReleaseClampsAndRounds(t *testing.T) {
	d := NewDragController(Camera{FOV: 90, Aspect: 1, Distance: 10}, nil)
	require.True(t, d.PointerDown("crate", model.Pos(10, 10), ToRenderSpace(model.Pos(10, 10))))
	d.PointerMove(math32.Vec2(-1, 1))

	commit, ok := d.Release()
	require.True(t, ok)
	assert.Equal(t, model.Pos(0, 0), commit.Position)
}

func TestDragController_ReleaseWithoutMoveKeepsPosition(t *testing.T) {
	d := NewDragController(DefaultCamera(), nil)
	require.True(t, d.PointerDown("crate", model.Pos(123, 456), ToRenderSpace(model.Pos(123, 456))))

	commit, ok := d.Release()
	require.True(t, ok)
	assert.Equal(t, model.Pos(123, 456), commit.Position)
}

func TestDragController_ResolveFailureReturnsToIdle(t *testing.T) {
	d := NewDragController(DefaultCamera(), nil)
	require.True(t, d.PointerDown("A", model.Pos(50, 50), ToRenderSpace(model.Pos(50, 50))))
	_, ok := d.Release()
	require.True(t, ok)

	d.Resolve(errors.New("network down"))
	assert.Equal(t, DragIdle, d.Phase())
	_, active := d.Active()
	assert.False(t, active)
}

func TestDragController_EventsOutsideDragAreIgnored(t *testing.T) {
	d := NewDragController(DefaultCamera(), nil)
	assert.False(t, d.PointerMove(math32.Vec2(0.1, 0.1)))
	_, ok := d.Release()
	assert.False(t, ok)
	d.Resolve(nil)
	assert.False(t, d.Cancel())
	assert.Equal(t, DragIdle, d.Phase())
}

func TestDragController_CancelAbandonsWithoutCommit(t *testing.T) {
	d := NewDragController(DefaultCamera(), nil)
	require.True(t, d.PointerDown("A", model.Pos(50, 50), ToRenderSpace(model.Pos(50, 50))))
	d.PointerMove(math32.Vec2(0.3, 0.3))

	assert.True(t, d.Cancel())
	_, ok := d.Release()
	assert.False(t, ok)
	assert.Equal(t, DragIdle, d.Phase())
}

func TestDragController_StartIsAuthoritativeMidEntrance(t *testing.T) {
	d := NewDragController(DefaultCamera(), nil)
	// Halfway through its entrance the object is drawn between staging and target.
	target := ToRenderSpace(model.Pos(600, 450))
	anchor := math32.Vec3(
		math32.Lerp(StagingPose.X, target.X, 0.5),
		Elevation,
		math32.Lerp(StagingPose.Z, target.Z, 0.5),
	)
	require.True(t, d.PointerDown("chair", model.Pos(600, 450), anchor))

	st, _ := d.Active()
	assert.Equal(t, model.Pos(600, 450), st.Start)
	assert.NotEqual(t, st.Start, ToCanonicalSpace(anchor).Round())

	commit, ok := d.Release()
	require.True(t, ok)
	assert.Equal(t, model.Pos(600, 450), commit.From)
	assert.Equal(t, ToCanonicalSpace(anchor).Clamp().Round(), commit.Position)
}
