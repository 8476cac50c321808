package scene

import (
	"time"

	"cogentcore.org/core/math32"
)

const (
	DefaultStepDelay = 300 * time.Millisecond
	DefaultDuration  = 800 * time.Millisecond

	// ReferenceSize is the render size the largest dimension of an object is normalized to.
	ReferenceSize = 2
	// ShrinkFactor is applied on top of the normalized scale.
	ShrinkFactor = 0.3
)

// StagingPose is where objects wait, at zero scale, before their entrance.
var StagingPose = math32.Vec3(-HalfWidth, Elevation, -HalfDepth)

// Phase is the progress of an entrance animation.
type Phase int

const (
	PhasePending Phase = iota
	PhaseRunning
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseRunning:
		return "running"
	case PhaseComplete:
		return "complete"
	}
	return "unknown"
}

// Entrance times the staggered appearance of objects. It holds no per-object
// state: every sample is a function of elapsed time since the object became visible.
type Entrance struct {
	StepDelay time.Duration
	Duration  time.Duration
}

func DefaultEntrance() Entrance {
	return Entrance{StepDelay: DefaultStepDelay, Duration: DefaultDuration}
}

// Delay is the stagger before an object with the given entrance order starts moving.
func (e Entrance) Delay(order int) time.Duration {
	if order < 0 {
		order = 0
	}
	return time.Duration(order) * e.StepDelay
}

// Progress returns linear progress in [0,1]. It is exactly 1 once elapsed
// reaches Delay(order)+Duration.
func (e Entrance) Progress(elapsed time.Duration, order int) (float32, Phase) {
	delay := e.Delay(order)
	if elapsed < delay {
		return 0, PhasePending
	}
	if e.Duration <= 0 {
		return 1, PhaseComplete
	}
	p := float64(elapsed-delay) / float64(e.Duration)
	if p >= 1 {
		return 1, PhaseComplete
	}
	return float32(p), PhaseRunning
}

// EaseOutCubic decelerates toward the end: 1 - (1-p)^3.
func EaseOutCubic(p float32) float32 {
	inv := 1 - math32.Clamp(p, 0, 1)
	return 1 - inv*inv*inv
}

// EntranceSample is the pose of an object at one instant of its entrance.
type EntranceSample struct {
	Position math32.Vector3
	Scale    float32
	Progress float32
	Phase    Phase
}

// Sample interpolates from the staging pose at zero scale to target at full scale.
func (e Entrance) Sample(elapsed time.Duration, order int, target math32.Vector3, scale float32) EntranceSample {
	p, phase := e.Progress(elapsed, order)
	switch phase {
	case PhasePending:
		return EntranceSample{Position: StagingPose, Phase: phase}
	case PhaseComplete:
		return EntranceSample{Position: target, Scale: scale, Progress: 1, Phase: phase}
	}
	eased := EaseOutCubic(p)
	pos := math32.Vec3(
		math32.Lerp(StagingPose.X, target.X, eased),
		math32.Lerp(StagingPose.Y, target.Y, eased),
		math32.Lerp(StagingPose.Z, target.Z, eased),
	)
	return EntranceSample{Position: pos, Scale: scale * eased, Progress: p, Phase: phase}
}

// Bounds returns a box of the given footprint size centered on the origin.
func Bounds(size [3]float64) math32.Box3 {
	w, h, d := float32(size[0])/2, float32(size[1])/2, float32(size[2])/2
	return math32.B3(-w, -h, -d, w, h, d)
}

// ScaleMultiplier normalizes bounds so the largest dimension becomes
// ReferenceSize. Degenerate bounds (empty, zero, NaN or infinite) yield 1.
func ScaleMultiplier(bounds math32.Box3) float32 {
	maxDim, ok := maxDimension(bounds)
	if !ok {
		return 1
	}
	return ReferenceSize / maxDim
}

// BaseScale is the steady-state render scale of an object with the given footprint.
func BaseScale(size [3]float64) float32 {
	return ScaleMultiplier(Bounds(size)) * ShrinkFactor
}

// Degenerate reports whether a footprint falls back to the unit multiplier.
func Degenerate(size [3]float64) bool {
	_, ok := maxDimension(Bounds(size))
	return !ok
}

func maxDimension(b math32.Box3) (float32, bool) {
	if b.IsEmpty() {
		return 0, false
	}
	s := b.Size()
	maxDim := math32.Max(s.X, math32.Max(s.Y, s.Z))
	if !(maxDim > 0) || math32.IsInf(maxDim, 0) {
		return 0, false
	}
	return maxDim, true
}
