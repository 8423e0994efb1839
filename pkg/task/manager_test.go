package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackingTask(name string, log *[]string, startErr error) *Func {
	return &Func{
		TaskName: name,
		StartFunc: func(ctx context.Context) error {
			*log = append(*log, "start:"+name)
			return startErr
		},
		StopFunc: func() error {
			*log = append(*log, "stop:"+name)
			return nil
		},
	}
}

func TestStartStopOrder(t *testing.T) {
	var log []string
	m := NewManager()
	m.Register(trackingTask("a", &log, nil))
	m.Register(trackingTask("b", &log, nil))

	require.NoError(t, m.StartAll(context.Background()))
	require.NoError(t, m.StartAll(context.Background()))
	require.NoError(t, m.StopAll())

	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, log)
}

func TestStartFailureRollsBack(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	m := NewManager()
	m.Register(trackingTask("a", &log, nil))
	m.Register(trackingTask("b", &log, boom))
	m.Register(trackingTask("c", &log, nil))

	err := m.StartAll(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"start:a", "start:b", "stop:a"}, log)
}

func TestContextCancelledOnStop(t *testing.T) {
	var seen context.Context
	m := NewManager()
	m.Register(&Func{TaskName: "ctx", StartFunc: func(ctx context.Context) error {
		seen = ctx
		return nil
	}})

	require.NoError(t, m.StartAll(context.Background()))
	require.NoError(t, m.StopAll())
	assert.ErrorIs(t, seen.Err(), context.Canceled)
}
