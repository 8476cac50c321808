package client

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEvents(t *testing.T) {
	stream := ": keepalive\n\n" +
		"event: store\ndata: {\"id\":\"a\"}\n\n" +
		"data: line one\ndata: line two\n\n" +
		"event: store\ndata:{}\n\n" +
		"event: ignored-without-data\n\n"

	var got []sseEvent
	err := readEvents(strings.NewReader(stream), func(ev sseEvent) error {
		got = append(got, ev)
		return nil
	})
	assert.ErrorIs(t, err, errStreamEnded)
	require.Len(t, got, 3)
	assert.Equal(t, sseEvent{name: "store", data: []byte(`{"id":"a"}`)}, got[0])
	assert.Equal(t, sseEvent{name: "message", data: []byte("line one\nline two")}, got[1])
	assert.Equal(t, sseEvent{name: "store", data: []byte("{}")}, got[2])
}

func TestReadEvents_CallbackErrorStops(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := readEvents(strings.NewReader("data: 1\n\ndata: 2\n\n"), func(sseEvent) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestReadEvents_UnterminatedEventIsDropped(t *testing.T) {
	calls := 0
	err := readEvents(strings.NewReader("event: store\ndata: {}"), func(sseEvent) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, errStreamEnded)
	assert.Zero(t, calls)
}
