// ABOUTME: Appliance configuration loaded with viper from TOML, env and flags
// ABOUTME: Typed records are cut from the loaded config; the core never reads viper
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/spf13/viper"

	"github.com/cambox-project/cambox-go/internal/intercom"
)

// SearchPaths are tried in order when no explicit --config file is given.
var SearchPaths = []string{"/etc/cambox", "."}

// Config is the full appliance configuration.
type Config struct {
	Hostname string
	Video    VideoConfig
	Intercom IntercomConfig
	Audio    AudioConfig
	Monitor  MonitorConfig
	RT       RTConfig
}

// VideoConfig selects the capture device and names the NDI source.
type VideoConfig struct {
	Device  string
	NDIName string
}

// IntercomConfig mirrors the intercom section of the appliance profile.
// Gains are direct sample multipliers.
type IntercomConfig struct {
	Enabled          bool
	Stream           string
	Target           string
	SampleRate       int
	Channels         int
	SidetoneGain     float64
	MicGain          float64
	HeadphoneGain    float64
	LimiterEnabled   bool
	LimiterThreshold float64
	MuteKey          int
}

// AudioConfig selects the hardware backend shared by capture and playback.
type AudioConfig struct {
	Backend      string
	Device       string
	PeriodFrames int
	PeriodCount  int
}

// MonitorConfig controls the websocket status server.
type MonitorConfig struct {
	Enabled bool
	Listen  string
}

// RTConfig is the scheduling directive handed to the realtime applier.
type RTConfig struct {
	Priority   int
	CPU        int
	LockMemory bool
}

func setDefaults() {
	viper.SetDefault("hostname", "camera-box")

	viper.SetDefault("video.device", "auto")
	viper.SetDefault("video.ndi_name", "usb")

	viper.SetDefault("intercom.enabled", true)
	viper.SetDefault("intercom.stream", "cam1")
	viper.SetDefault("intercom.target", "strih.lan")
	viper.SetDefault("intercom.sample_rate", 48000)
	viper.SetDefault("intercom.channels", 2)
	// Direct gain multiplier for sidetone, 0.0 = off.
	viper.SetDefault("intercom.sidetone_gain", 30.0)
	// +22dB boost for the outbound mic stream.
	viper.SetDefault("intercom.mic_gain", 12.0)
	viper.SetDefault("intercom.headphone_gain", 15.0)
	viper.SetDefault("intercom.limiter_enabled", true)
	// -16dB ceiling, aggressive to catch headset plug/unplug spikes.
	viper.SetDefault("intercom.limiter_threshold", 0.15)
	viper.SetDefault("intercom.mute_key", 248) // KEY_MICMUTE

	viper.SetDefault("audio.backend", "malgo")
	viper.SetDefault("audio.device", "auto")
	viper.SetDefault("audio.period_frames", 256)
	viper.SetDefault("audio.period_count", 4)

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.listen", ":8652")

	viper.SetDefault("rt.priority", 90)
	viper.SetDefault("rt.cpu", 1)
	viper.SetDefault("rt.lock_memory", true)
}

// Init wires defaults, search paths and the CAMBOX_ environment prefix
// into the process-wide viper and reads the config file. A missing file
// is only an error when one was named explicitly; the appliance runs on
// the shipped defaults otherwise.
func Init(file string) error {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	for _, dir := range SearchPaths {
		viper.AddConfigPath(dir)
	}

	// Env vars override the file: CAMBOX_INTERCOM_TARGET and so on.
	viper.SetEnvPrefix("cambox")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if file != "" {
		viper.SetConfigFile(file)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && file == "" {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load cuts a typed Config from the loaded viper state and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Hostname: viper.GetString("hostname"),
		Video: VideoConfig{
			Device:  viper.GetString("video.device"),
			NDIName: viper.GetString("video.ndi_name"),
		},
		Intercom: IntercomConfig{
			Enabled:          viper.GetBool("intercom.enabled"),
			Stream:           viper.GetString("intercom.stream"),
			Target:           viper.GetString("intercom.target"),
			SampleRate:       viper.GetInt("intercom.sample_rate"),
			Channels:         viper.GetInt("intercom.channels"),
			SidetoneGain:     viper.GetFloat64("intercom.sidetone_gain"),
			MicGain:          viper.GetFloat64("intercom.mic_gain"),
			HeadphoneGain:    viper.GetFloat64("intercom.headphone_gain"),
			LimiterEnabled:   viper.GetBool("intercom.limiter_enabled"),
			LimiterThreshold: viper.GetFloat64("intercom.limiter_threshold"),
			MuteKey:          viper.GetInt("intercom.mute_key"),
		},
		Audio: AudioConfig{
			Backend:      viper.GetString("audio.backend"),
			Device:       viper.GetString("audio.device"),
			PeriodFrames: viper.GetInt("audio.period_frames"),
			PeriodCount:  viper.GetInt("audio.period_count"),
		},
		Monitor: MonitorConfig{
			Enabled: viper.GetBool("monitor.enabled"),
			Listen:  viper.GetString("monitor.listen"),
		},
		RT: RTConfig{
			Priority:   viper.GetInt("rt.priority"),
			CPU:        viper.GetInt("rt.cpu"),
			LockMemory: viper.GetBool("rt.lock_memory"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the appliance cannot start with.
// Intercom settings are checked by the core's own validation so the
// two never disagree.
func (c *Config) Validate() error {
	if c.Hostname == "" {
		return errors.New("hostname is empty")
	}
	if c.Intercom.Enabled {
		if err := c.IntercomSettings().Validate(); err != nil {
			return err
		}
		if c.Intercom.MuteKey < 0 || c.Intercom.MuteKey > 0xFFFF {
			return fmt.Errorf("intercom.mute_key %d outside the 16-bit event code range", c.Intercom.MuteKey)
		}
	}
	if c.Monitor.Enabled {
		if _, _, err := net.SplitHostPort(c.Monitor.Listen); err != nil {
			return fmt.Errorf("monitor.listen %q: %w", c.Monitor.Listen, err)
		}
	}
	if c.RT.Priority < 0 || c.RT.Priority > 99 {
		return fmt.Errorf("rt.priority %d outside SCHED_FIFO range 0-99", c.RT.Priority)
	}
	if c.RT.CPU < 0 {
		return fmt.Errorf("rt.cpu %d is negative", c.RT.CPU)
	}
	return nil
}

// IntercomSettings cuts the session settings record from the loaded
// config. The core consumes the record; it never sees viper.
func (c *Config) IntercomSettings() intercom.Settings {
	return intercom.Settings{
		StreamName:       c.Intercom.Stream,
		TargetHost:       c.Intercom.Target,
		SampleRate:       c.Intercom.SampleRate,
		Channels:         c.Intercom.Channels,
		MicGain:          c.Intercom.MicGain,
		HeadphoneGain:    c.Intercom.HeadphoneGain,
		SidetoneGain:     c.Intercom.SidetoneGain,
		LimiterEnabled:   c.Intercom.LimiterEnabled,
		LimiterThreshold: c.Intercom.LimiterThreshold,
		Backend:          c.Audio.Backend,
		CaptureDevice:    c.Audio.Device,
		PlaybackDevice:   c.Audio.Device,
		PeriodFrames:     c.Audio.PeriodFrames,
		PeriodCount:      c.Audio.PeriodCount,
		MuteKey:          uint16(c.Intercom.MuteKey),
	}
}
