// ABOUTME: Wiring tests for the appliance orchestrator
// ABOUTME: Runs pattern video, sim audio, and the monitor together on loopback
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cambox-project/cambox-go/internal/config"
	"github.com/cambox-project/cambox-go/internal/intercom"
)

func testConfig() *config.Config {
	return &config.Config{
		Hostname: "test-box",
		Video: config.VideoConfig{
			Device:  "auto",
			NDIName: "usb",
		},
		Intercom: config.IntercomConfig{
			Enabled:          true,
			Stream:           "cam1",
			Target:           "127.0.0.1",
			SampleRate:       48000,
			Channels:         2,
			SidetoneGain:     1.0,
			MicGain:          1.0,
			HeadphoneGain:    1.0,
			LimiterEnabled:   true,
			LimiterThreshold: 0.15,
			MuteKey:          248,
		},
		Audio: config.AudioConfig{
			Backend:      "sim",
			Device:       "auto",
			PeriodFrames: 64,
			PeriodCount:  4,
		},
		Monitor: config.MonitorConfig{
			Enabled: true,
			Listen:  "127.0.0.1:0",
		},
	}
}

func noButtons() []intercom.ButtonSource {
	return nil
}

func TestNewWiresEnabledComponents(t *testing.T) {
	a, err := New(testConfig(), Options{Buttons: noButtons})
	require.NoError(t, err)

	assert.NotNil(t, a.pipeline)
	assert.NotNil(t, a.supervisor)
	assert.NotNil(t, a.monitor)
	assert.NotNil(t, a.announcer)
}

func TestNewSkipsDisabledComponents(t *testing.T) {
	cfg := testConfig()
	cfg.Intercom.Enabled = false
	cfg.Monitor.Enabled = false

	a, err := New(cfg, Options{})
	require.NoError(t, err)

	assert.NotNil(t, a.pipeline, "video always runs")
	assert.Nil(t, a.supervisor)
	assert.Nil(t, a.monitor)
	assert.Nil(t, a.announcer)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Audio.Backend = "pulse"

	_, err := New(cfg, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audio backend")
}

func TestNewRejectsBadMonitorListen(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor.Listen = "8652"

	_, err := New(cfg, Options{Buttons: noButtons})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitor listen address")
}

func TestNewFallsBackToPatternForUnknownDevice(t *testing.T) {
	cfg := testConfig()
	cfg.Video.Device = "/dev/video0"

	a, err := New(cfg, Options{Buttons: noButtons})
	require.NoError(t, err)
	assert.NotNil(t, a.pipeline)
}

func TestApplianceRunAndShutdown(t *testing.T) {
	a, err := New(testConfig(), Options{Buttons: noButtons})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		return a.supervisor.State() == intercom.StateRunning
	}, 5*time.Second, 10*time.Millisecond, "intercom session should come up")

	require.Eventually(t, func() bool {
		return a.pipeline.Frames() > 0
	}, 5*time.Second, 10*time.Millisecond, "video should pump frames")

	require.Eventually(t, func() bool {
		return a.monitor.Addr() != nil
	}, 5*time.Second, 10*time.Millisecond, "monitor should bind")

	// One end-to-end probe: the status endpoint reflects the wired box.
	url := fmt.Sprintf("http://%s/status", a.monitor.Addr().String())
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var status struct {
		Hostname string `json:"hostname"`
		Session  struct {
			State string `json:"state"`
		} `json:"session"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "test-box", status.Hostname)
	assert.NotEqual(t, "disabled", status.Session.State)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("appliance did not stop after cancel")
	}
}

func TestMonitorFailureDoesNotKillAppliance(t *testing.T) {
	// Occupy the port so the monitor's bind fails.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	cfg.Intercom.Enabled = false
	cfg.Monitor.Listen = ln.Addr().String()

	a, err := New(cfg, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		return a.pipeline.Frames() > 0
	}, 5*time.Second, 10*time.Millisecond, "video must survive a monitor bind failure")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("appliance did not stop after cancel")
	}
}
