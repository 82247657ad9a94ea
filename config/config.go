// Package config loads gxfifo settings from a TOML file, a .env file and
// GXFIFO_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "GXFIFO_"

// Config holds every setting.
type Config struct {
	Window     Window     `toml:"window"`
	Staging    Staging    `toml:"staging"`
	Scheduler  Scheduler  `toml:"scheduler"`
	Capture    Capture    `toml:"capture"`
	Monitoring Monitoring `toml:"monitoring"`
	Log        Log        `toml:"log"`
}

// Window places the producer's FIFO in emulated memory.
type Window struct {
	Base       uint32 `toml:"base"`
	End        uint32 `toml:"end"`
	MemorySize uint32 `toml:"memory-size"`
}

// Staging sizes the staging buffer.
type Staging struct {
	Capacity int `toml:"capacity"`
}

// Scheduler configures the consumer.
type Scheduler struct {
	ChunkSize uint32        `toml:"chunk-size"`
	DualCore  bool          `toml:"dual-core"`
	IdlePoll  time.Duration `toml:"idle-poll"`
}

// Capture configures stream recording.
type Capture struct {
	Path string `toml:"path"`
}

// Monitoring configures the HTTP monitor.
type Monitoring struct {
	Enabled     bool `toml:"enabled"`
	Port        int  `toml:"port"`
	OpenBrowser bool `toml:"open-browser"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Window: Window{
			Base:       0x00200000,
			End:        0x00220000,
			MemorySize: 0x01800000,
		},
		Staging: Staging{
			Capacity: 1 << 20,
		},
		Scheduler: Scheduler{
			ChunkSize: 32,
			DualCore:  true,
			IdlePoll:  time.Millisecond,
		},
		Monitoring: Monitoring{
			Port: 0,
		},
	}
}

// Load reads the TOML file at path, if any, then applies the variables of
// envFile, if it exists, and finally the process environment.
func Load(path, envFile string) (*Config, error) {
	c := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, c)
		if err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}

		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys in %s: %v", path, undecoded)
		}
	}

	env := map[string]string{}

	if envFile != "" {
		fileEnv, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			env = fileEnv
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("cannot read %s: %w", envFile, err)
		}
	}

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}

	if err := c.applyEnv(env); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

type override struct {
	key   string
	apply func(string) error
}

func (c *Config) overrides() []override {
	return []override{
		{"WINDOW_BASE", parseUint32(&c.Window.Base)},
		{"WINDOW_END", parseUint32(&c.Window.End)},
		{"MEMORY_SIZE", parseUint32(&c.Window.MemorySize)},
		{"STAGING_CAPACITY", parseInt(&c.Staging.Capacity)},
		{"CHUNK_SIZE", parseUint32(&c.Scheduler.ChunkSize)},
		{"DUAL_CORE", parseBool(&c.Scheduler.DualCore)},
		{"IDLE_POLL", parseDuration(&c.Scheduler.IdlePoll)},
		{"CAPTURE_PATH", parseString(&c.Capture.Path)},
		{"MONITOR", parseBool(&c.Monitoring.Enabled)},
		{"MONITOR_PORT", parseInt(&c.Monitoring.Port)},
		{"MONITOR_BROWSER", parseBool(&c.Monitoring.OpenBrowser)},
		{"LOG_VERBOSITY", parseInt(&c.Log.Verbosity)},
		{"LOG_FILE", parseString(&c.Log.File)},
	}
}

func (c *Config) applyEnv(env map[string]string) error {
	for _, o := range c.overrides() {
		v, ok := env[EnvPrefix+o.key]
		if !ok {
			continue
		}

		if err := o.apply(v); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, o.key, err)
		}
	}

	return nil
}

// Validate checks that the settings can build a working FIFO.
func (c *Config) Validate() error {
	switch {
	case c.Window.End <= c.Window.Base:
		return fmt.Errorf("window end 0x%08x must be above base 0x%08x",
			c.Window.End, c.Window.Base)
	case c.Window.End > c.Window.MemorySize:
		return fmt.Errorf("window end 0x%08x is outside memory of 0x%x bytes",
			c.Window.End, c.Window.MemorySize)
	case c.Staging.Capacity <= 0:
		return fmt.Errorf("staging capacity %d must be positive",
			c.Staging.Capacity)
	case c.Scheduler.ChunkSize == 0 ||
		int(c.Scheduler.ChunkSize) > c.Staging.Capacity:
		return fmt.Errorf("chunk size %d must be in [1, %d]",
			c.Scheduler.ChunkSize, c.Staging.Capacity)
	case c.Scheduler.IdlePoll <= 0:
		return fmt.Errorf("idle poll %s must be positive", c.Scheduler.IdlePoll)
	case c.Monitoring.Port < 0 || c.Monitoring.Port > 65535:
		return fmt.Errorf("monitor port %d is invalid", c.Monitoring.Port)
	}

	return nil
}

func parseUint32(dst *uint32) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return err
		}

		*dst = uint32(v)

		return nil
	}
}

func parseInt(dst *int) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseInt(s, 0, 0)
		if err != nil {
			return err
		}

		*dst = int(v)

		return nil
	}
}

func parseBool(dst *bool) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}

		*dst = v

		return nil
	}
}

func parseDuration(dst *time.Duration) func(string) error {
	return func(s string) error {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}

		*dst = v

		return nil
	}
}

func parseString(dst *string) func(string) error {
	return func(s string) error {
		*dst = s
		return nil
	}
}
