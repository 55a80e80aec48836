// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/replayd/internal/capture"
	"github.com/ManuGH/replayd/internal/event"
)

func TestRecordPreservesOrder(t *testing.T) {
	pipe := capture.NewPipe()
	r := New(pipe)
	require.NoError(t, r.Start(context.Background()))

	pipe.Emit(capture.Notification{Kind: event.KindKeyDown, Code: 0x1E})
	time.Sleep(10 * time.Millisecond)
	pipe.Emit(capture.Notification{Kind: event.KindKeyUp, Code: 0x1E})
	pipe.Emit(capture.Notification{Kind: event.KindMouseMove, DX: 10, DY: -4})
	time.Sleep(20 * time.Millisecond)

	m, lost, err := r.Stop()
	require.NoError(t, err)
	require.False(t, lost)
	require.Len(t, m.Events, 3)

	require.Equal(t, event.KindKeyDown, m.Events[0].Kind)
	require.Equal(t, event.KindKeyUp, m.Events[1].Kind)
	require.Equal(t, event.KindMouseMove, m.Events[2].Kind)
	require.Equal(t, int32(10), m.Events[2].DX)

	// First event anchors the timeline; later offsets are deltas.
	require.Equal(t, time.Duration(0), m.Events[0].Offset)
	require.Greater(t, m.Events[1].Offset, time.Duration(0))

	var total time.Duration
	for _, ev := range m.Events {
		total += ev.Offset
	}
	require.Equal(t, total, m.Duration)
}

func TestStopIdempotent(t *testing.T) {
	pipe := capture.NewPipe()
	r := New(pipe)
	require.NoError(t, r.Start(context.Background()))
	pipe.Emit(capture.Notification{Kind: event.KindKeyDown, Code: 0x10})

	first, lost1, err := r.Stop()
	require.NoError(t, err)
	second, lost2, err := r.Stop()
	require.NoError(t, err)
	require.Equal(t, first.Events, second.Events)
	require.Equal(t, lost1, lost2)
}

func TestStartWhileRecording(t *testing.T) {
	pipe := capture.NewPipe()
	r := New(pipe)
	require.NoError(t, r.Start(context.Background()))
	require.Error(t, r.Start(context.Background()))
	_, _, err := r.Stop()
	require.NoError(t, err)
}

func TestCaptureLost(t *testing.T) {
	pipe := capture.NewPipe()
	r := New(pipe)
	require.NoError(t, r.Start(context.Background()))
	pipe.Emit(capture.Notification{Kind: event.KindKeyDown, Code: 0x1E})
	pipe.Emit(capture.Notification{Kind: event.KindKeyUp, Code: 0x1E})

	// The source dying mid-recording must finalize with what was captured
	// and flag the loss. Give the drain goroutine time to observe the close.
	require.NoError(t, pipe.Stop())
	time.Sleep(50 * time.Millisecond)

	m, lost, err := r.Stop()
	require.NoError(t, err)
	require.True(t, lost)
	require.Len(t, m.Events, 2)
}

func TestOnEventObserver(t *testing.T) {
	pipe := capture.NewPipe()
	r := New(pipe)
	seen := make(chan event.Event, 4)
	r.SetOnEvent(func(ev event.Event) { seen <- ev })
	require.NoError(t, r.Start(context.Background()))

	pipe.Emit(capture.Notification{Kind: event.KindMouseWheel, Wheel: 2})
	select {
	case ev := <-seen:
		require.Equal(t, event.KindMouseWheel, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("observer not invoked")
	}
	_, _, err := r.Stop()
	require.NoError(t, err)
}
