// Package scene keeps a locally rendered room consistent with server-pushed state
// while the user drags objects around it.
package scene

import (
	"cogentcore.org/core/math32"

	"showroom/internal/model"
)

// Render-space extents of the canonical canvas. Canonical x in [0,800] maps to
// render x in [-HalfWidth, HalfWidth]; canonical y in [0,600] maps to render z
// in [-HalfDepth, HalfDepth].
const (
	HalfWidth = 4
	HalfDepth = 3

	// Elevation is the constant render y of every placed object.
	Elevation = 0.2
)

// ToRenderSpace maps a canonical position onto the ground plane. Out-of-range
// input is not clamped and lands outside the nominal render volume.
func ToRenderSpace(c model.Canonical) math32.Vector3 {
	x := c.X()/model.CanvasWidth*2*HalfWidth - HalfWidth
	z := c.Y()/model.CanvasHeight*2*HalfDepth - HalfDepth
	return math32.Vec3(float32(x), Elevation, float32(z))
}

// ToCanonicalSpace is the exact inverse of ToRenderSpace. The render y is ignored.
func ToCanonicalSpace(v math32.Vector3) model.Canonical {
	x := (float64(v.X) + HalfWidth) / (2 * HalfWidth) * model.CanvasWidth
	y := (float64(v.Z) + HalfDepth) / (2 * HalfDepth) * model.CanvasHeight
	return model.Pos(x, y)
}
