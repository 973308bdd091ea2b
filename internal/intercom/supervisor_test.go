// ABOUTME: Supervisor tests covering restart-on-failure and clean shutdown
// ABOUTME: Uses stalling simulated captures to trigger the watchdog
package intercom

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cambox-project/cambox-go/pkg/audio/device"
)

func stallingBackend() *device.SimBackend {
	return &device.SimBackend{
		NewCapture: func(p device.Params) (device.Capture, error) {
			// Fresh stalled capture per session: reads return no samples.
			return &device.SimCapture{Params: p, Pace: true}, nil
		},
	}
}

func TestSupervisorRestartsAfterStall(t *testing.T) {
	far := newFarEnd(t)
	s := testSettings(far.Addr())
	backend := stallingBackend()

	mute := NewMuteFlag()
	mute.Toggle() // unmuted; must survive restarts

	sup := NewSupervisor(SupervisorConfig{
		Settings: s,
		Backend:  backend,
		Mute:     mute,
		Log:      testLog(),
	})
	sup.backoff = 50 * time.Millisecond
	sup.statsEvery = 50 * time.Millisecond
	sup.recvPort = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	require.Eventually(t, func() bool { return sup.Restarts() >= 2 },
		5*time.Second, 5*time.Millisecond, "supervisor never rebuilt the session")

	assert.GreaterOrEqual(t, backend.Captures(), 3, "each session must open fresh hardware")
	assert.False(t, mute.Muted(), "mute state must persist across sessions")
	assert.NotEmpty(t, sup.SessionID())

	cancel()
	require.NoError(t, <-done)
}

func TestSupervisorReturnsConfigErrorImmediately(t *testing.T) {
	s := validSettings()
	s.StreamName = ""
	backend := &device.SimBackend{}

	sup := NewSupervisor(SupervisorConfig{Settings: s, Backend: backend, Log: testLog()})

	err := sup.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSettings)
	assert.Equal(t, 0, backend.Captures(), "no session may start on bad settings")
	assert.Zero(t, sup.Restarts())
}

func TestSupervisorCleanStop(t *testing.T) {
	far := newFarEnd(t)
	s := testSettings(far.Addr())

	// Default sim devices capture paced silence: a healthy session.
	backend := &device.SimBackend{}

	sup := NewSupervisor(SupervisorConfig{Settings: s, Backend: backend, Log: testLog()})
	sup.recvPort = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	require.Eventually(t, func() bool { return sup.State() == StateRunning },
		2*time.Second, time.Millisecond, "session never reached running")

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, StateTerminated, sup.State())
	assert.Zero(t, sup.Restarts(), "clean stop must not count as a restart")
}

func TestSupervisorIdleBeforeFirstSession(t *testing.T) {
	sup := NewSupervisor(SupervisorConfig{Settings: validSettings(), Backend: &device.SimBackend{}})
	assert.Equal(t, StateIdle, sup.State())
	assert.Empty(t, sup.SessionID())
	assert.True(t, sup.Muted())
	assert.NotNil(t, sup.Stats())
}
