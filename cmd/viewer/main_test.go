package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"showroom/internal/model"
	"showroom/internal/scene"
)

func TestSummarize(t *testing.T) {
	f := scene.Frame{
		Occupancy: 2,
		Capacity:  2,
		Items: []scene.RenderItem{
			{Name: "sofa", Position: scene.ToRenderSpace(model.Pos(400, 300))},
			{Name: "lamp", Position: scene.ToRenderSpace(model.Pos(100, 50)), Dragging: true},
		},
	}
	assert.Equal(t, "2/2 sofa@400,300:placed lamp@100,50:dragging", summarize(f))
}

func TestFrameLogger_LogsOnlyChanges(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newFrameLogger(zap.New(core))

	f := scene.Frame{RoomID: "studio", Occupancy: 1, Capacity: 2, Items: []scene.RenderItem{
		{Name: "sofa", Position: scene.ToRenderSpace(model.Pos(400, 300))},
	}}
	r.Render(f)
	r.Render(f)
	assert.Equal(t, 1, logs.Len())

	f.Occupancy = 2
	r.Render(f)
	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, true, logs.All()[1].ContextMap()["shared"])
}
