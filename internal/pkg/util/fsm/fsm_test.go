package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMachine(enter fsm.Callback) *fsm.FSM {
	return fsm.NewFSM("idle",
		fsm.Events{
			{Name: "start", Src: []string{"idle"}, Dst: "running"},
			{Name: "noop", Src: []string{"running"}, Dst: "running"},
		},
		fsm.Callbacks{"enter_state": enter},
	)
}

func TestFire(t *testing.T) {
	var entered []string
	m := newMachine(WrapEvent(func(_ context.Context, e *fsm.Event) error {
		entered = append(entered, e.Dst)
		return nil
	}))

	require.NoError(t, Fire(context.Background(), m, "start"))
	assert.Equal(t, "running", m.Current())
	assert.Equal(t, []string{"running"}, entered)

	// running -> running is not reported.
	require.NoError(t, Fire(context.Background(), m, "noop"))

	var invalid fsm.InvalidEventError
	assert.True(t, errors.As(Fire(context.Background(), m, "start"), &invalid))
}
