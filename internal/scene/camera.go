package scene

import (
	"cogentcore.org/core/math32"

	"showroom/internal/model"
)

const defaultFOV = 60

// Camera describes the perspective the rendering surface draws the room with.
// Pointer positions arrive in normalized device coordinates and are projected
// onto the plane at the object's elevation.
type Camera struct {
	// FOV is the vertical field of view in degrees.
	FOV float32
	// Aspect is viewport width over height.
	Aspect float32
	// Distance from the camera to the scene center along the view axis.
	Distance float32
}

// DefaultCamera frames the render rectangle exactly: the frustum at the scene
// center spans [-HalfWidth,HalfWidth] by [-HalfDepth,HalfDepth].
func DefaultCamera() Camera {
	return Camera{
		FOV:      defaultFOV,
		Aspect:   float32(model.CanvasWidth) / float32(model.CanvasHeight),
		Distance: HalfDepth / math32.Tan(math32.DegToRad(defaultFOV)/2),
	}
}

func (c Camera) normalized() Camera {
	def := DefaultCamera()
	if !(c.FOV > 0 && c.FOV < 180) {
		c.FOV = def.FOV
	}
	if !(c.Aspect > 0) || math32.IsInf(c.Aspect, 0) {
		c.Aspect = def.Aspect
	}
	if !(c.Distance > 0) || math32.IsInf(c.Distance, 0) {
		c.Distance = def.Distance
	}
	return c
}

// Project converts a pointer in normalized device coordinates (x right, y up,
// both in [-1,1]) to a render-space position at the given elevation. Screen up
// moves toward the back of the room (negative z).
func (c Camera) Project(ndc math32.Vector2, elevation float32) math32.Vector3 {
	c = c.normalized()
	halfHeight := c.Distance * math32.Tan(math32.DegToRad(c.FOV)/2)
	halfWidth := halfHeight * c.Aspect
	return math32.Vec3(ndc.X*halfWidth, elevation, -ndc.Y*halfHeight)
}
