// ABOUTME: Tests for appliance configuration loading and validation
// ABOUTME: Exercises defaults, file parsing, env override and the settings cut
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetConfig gives each test a clean viper and keeps the search away
// from any real /etc/cambox on the build host.
func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	oldPaths := SearchPaths
	SearchPaths = []string{t.TempDir()}
	t.Cleanup(func() {
		SearchPaths = oldPaths
		viper.Reset()
	})
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	resetConfig(t)
	require.NoError(t, Init(""))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "camera-box", cfg.Hostname)
	assert.Equal(t, "auto", cfg.Video.Device)
	assert.Equal(t, "usb", cfg.Video.NDIName)

	assert.True(t, cfg.Intercom.Enabled)
	assert.Equal(t, "cam1", cfg.Intercom.Stream)
	assert.Equal(t, "strih.lan", cfg.Intercom.Target)
	assert.Equal(t, 48000, cfg.Intercom.SampleRate)
	assert.Equal(t, 2, cfg.Intercom.Channels)
	assert.InDelta(t, 30.0, cfg.Intercom.SidetoneGain, 0.001)
	assert.InDelta(t, 12.0, cfg.Intercom.MicGain, 0.001)
	assert.InDelta(t, 15.0, cfg.Intercom.HeadphoneGain, 0.001)
	assert.True(t, cfg.Intercom.LimiterEnabled)
	assert.InDelta(t, 0.15, cfg.Intercom.LimiterThreshold, 0.001)
	assert.Equal(t, 248, cfg.Intercom.MuteKey)

	assert.Equal(t, "malgo", cfg.Audio.Backend)
	assert.Equal(t, "auto", cfg.Audio.Device)
	assert.Equal(t, 256, cfg.Audio.PeriodFrames)
	assert.Equal(t, 4, cfg.Audio.PeriodCount)

	assert.True(t, cfg.Monitor.Enabled)
	assert.Equal(t, ":8652", cfg.Monitor.Listen)

	assert.Equal(t, 90, cfg.RT.Priority)
	assert.Equal(t, 1, cfg.RT.CPU)
	assert.True(t, cfg.RT.LockMemory)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	resetConfig(t)
	path := writeConfig(t, `
hostname = "cam2-box"

[video]
ndi_name = "stage-left"

[intercom]
stream = "cam2"
target = "192.168.1.50:6980"
sidetone_gain = 10.0

[audio]
backend = "sim"

[rt]
priority = 70
`)
	require.NoError(t, Init(path))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cam2-box", cfg.Hostname)
	assert.Equal(t, "stage-left", cfg.Video.NDIName)
	assert.Equal(t, "cam2", cfg.Intercom.Stream)
	assert.Equal(t, "192.168.1.50:6980", cfg.Intercom.Target)
	assert.InDelta(t, 10.0, cfg.Intercom.SidetoneGain, 0.001)
	assert.Equal(t, "sim", cfg.Audio.Backend)
	assert.Equal(t, 70, cfg.RT.Priority)

	// Untouched keys keep the shipped profile.
	assert.Equal(t, "auto", cfg.Video.Device)
	assert.Equal(t, 48000, cfg.Intercom.SampleRate)
	assert.InDelta(t, 12.0, cfg.Intercom.MicGain, 0.001)
}

func TestInitSearchPathPicksUpFile(t *testing.T) {
	resetConfig(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte("hostname = \"rack-cam\"\n"), 0o644))
	SearchPaths = []string{dir}

	require.NoError(t, Init(""))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "rack-cam", cfg.Hostname)
}

func TestInitExplicitMissingFileFails(t *testing.T) {
	resetConfig(t)
	err := Init(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestInitMalformedFileFails(t *testing.T) {
	resetConfig(t)
	path := writeConfig(t, "hostname = [broken\n")
	require.Error(t, Init(path))
}

func TestEnvOverridesFile(t *testing.T) {
	resetConfig(t)
	t.Setenv("CAMBOX_INTERCOM_TARGET", "10.4.0.7")
	t.Setenv("CAMBOX_HOSTNAME", "env-box")
	path := writeConfig(t, `
hostname = "file-box"

[intercom]
target = "file.lan"
`)
	require.NoError(t, Init(path))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-box", cfg.Hostname)
	assert.Equal(t, "10.4.0.7", cfg.Intercom.Target)
}

func TestLoadRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty stream", "[intercom]\nstream = \"\"\n"},
		{"stream too long", "[intercom]\nstream = \"a-very-long-stream-name\"\n"},
		{"bad sample rate", "[intercom]\nsample_rate = 44000\n"},
		{"mono channels", "[intercom]\nchannels = 1\n"},
		{"negative gain", "[intercom]\nmic_gain = -1.0\n"},
		{"mute key overflow", "[intercom]\nmute_key = 70000\n"},
		{"bad monitor listen", "[monitor]\nlisten = \"8652\"\n"},
		{"priority too high", "[rt]\npriority = 150\n"},
		{"negative cpu", "[rt]\ncpu = -1\n"},
		{"empty hostname", "hostname = \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetConfig(t)
			require.NoError(t, Init(writeConfig(t, tt.body)))
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDisabledIntercomSkipsItsValidation(t *testing.T) {
	resetConfig(t)
	path := writeConfig(t, `
[intercom]
enabled = false
sample_rate = 44000
`)
	require.NoError(t, Init(path))
	_, err := Load()
	assert.NoError(t, err)
}

func TestIntercomSettingsCut(t *testing.T) {
	resetConfig(t)
	path := writeConfig(t, `
[intercom]
stream = "cam3"
target = "strih.lan"
mute_key = 113

[audio]
backend = "oto"
device = "usb headset"
period_frames = 128
period_count = 3
`)
	require.NoError(t, Init(path))

	cfg, err := Load()
	require.NoError(t, err)

	s := cfg.IntercomSettings()
	assert.Equal(t, "cam3", s.StreamName)
	assert.Equal(t, "strih.lan", s.TargetHost)
	assert.Equal(t, 48000, s.SampleRate)
	assert.Equal(t, "oto", s.Backend)
	assert.Equal(t, "usb headset", s.CaptureDevice)
	assert.Equal(t, "usb headset", s.PlaybackDevice)
	assert.Equal(t, 128, s.PeriodFrames)
	assert.Equal(t, 3, s.PeriodCount)
	assert.Equal(t, uint16(113), s.MuteKey)
	require.NoError(t, s.Validate())
}
