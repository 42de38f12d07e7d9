// Package config loads daemon configuration from flags, CAPMON_* environment
// variables and an optional YAML file, in that order of precedence.
//
// Alarm thresholds and the long-press duration are deliberately absent: they
// are build-time constants in the logic and button packages.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/bottle-cap-monitor/internal/gpio"
)

// EnvPrefix is prepended to every environment variable key.
const EnvPrefix = "CAPMON"

// Pins holds BCM line offsets for every input and output.
type Pins struct {
	Bottle    int `mapstructure:"bottle"`
	Cap       int `mapstructure:"cap"`
	Button    int `mapstructure:"button"`
	BottleLED int `mapstructure:"bottle_led"`
	CapLED    int `mapstructure:"cap_led"`
	AlarmLED  int `mapstructure:"alarm_led"`
	Relay     int `mapstructure:"relay"`
}

// Config is the resolved daemon configuration.
type Config struct {
	Chip        string        `mapstructure:"chip"`
	Pins        Pins          `mapstructure:"pins"`
	Poll        time.Duration `mapstructure:"poll"`
	Heartbeat   time.Duration `mapstructure:"heartbeat"`
	Broker      string        `mapstructure:"broker"`
	HTTPAddr    string        `mapstructure:"http"`
	LogLevel    string        `mapstructure:"log_level"`
	Diagnostics bool          `mapstructure:"diagnostics"`
	PrintState  bool          `mapstructure:"print_state"`
}

// GPIOPins converts the configured pins to the gpio package's layout.
func (c Config) GPIOPins() gpio.Pins {
	return gpio.Pins{
		Bottle:    c.Pins.Bottle,
		Cap:       c.Pins.Cap,
		Button:    c.Pins.Button,
		BottleLED: c.Pins.BottleLED,
		CapLED:    c.Pins.CapLED,
		AlarmLED:  c.Pins.AlarmLED,
		Relay:     c.Pins.Relay,
	}
}

// Load parses args (without the program name) and resolves the configuration.
func Load(args []string) (Config, error) {
	v := viper.New()
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	setDefaults(v)
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, fs); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("capmonitor", pflag.ContinueOnError)
	fs.String("config", "", "Path to YAML config file")
	fs.String("chip", gpio.DefaultChip, "GPIO chip device")
	fs.Int("pins.bottle", gpio.DefaultPins.Bottle, "BCM pin for the bottle sensor (active-high)")
	fs.Int("pins.cap", gpio.DefaultPins.Cap, "BCM pin for the cap sensor (active-low)")
	fs.Int("pins.button", gpio.DefaultPins.Button, "BCM pin for the reset button (pull-up, active-low)")
	fs.Int("pins.bottle_led", gpio.DefaultPins.BottleLED, "BCM pin for the bottle indicator")
	fs.Int("pins.cap_led", gpio.DefaultPins.CapLED, "BCM pin for the cap indicator")
	fs.Int("pins.alarm_led", gpio.DefaultPins.AlarmLED, "BCM pin for the alarm indicator")
	fs.Int("pins.relay", gpio.DefaultPins.Relay, "BCM pin for the alarm relay")
	fs.Duration("poll", 5*time.Millisecond, "Control cycle interval")
	fs.Duration("heartbeat", 15*time.Minute, "Diagnostic heartbeat interval (0 to disable)")
	fs.String("broker", "", "MQTT broker for the diagnostic mirror (empty to disable)")
	fs.String("http", "", "HTTP status address (empty to disable)")
	fs.String("log_level", "info", "Log level: debug, info, warn, error")
	fs.Bool("diagnostics", false, "Emit diagnostic status lines")
	fs.Bool("print_state", false, "Print current input state and exit")
	return fs
}

// setDefaults registers every key so AutomaticEnv can resolve nested keys
// during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("chip", gpio.DefaultChip)
	v.SetDefault("pins.bottle", gpio.DefaultPins.Bottle)
	v.SetDefault("pins.cap", gpio.DefaultPins.Cap)
	v.SetDefault("pins.button", gpio.DefaultPins.Button)
	v.SetDefault("pins.bottle_led", gpio.DefaultPins.BottleLED)
	v.SetDefault("pins.cap_led", gpio.DefaultPins.CapLED)
	v.SetDefault("pins.alarm_led", gpio.DefaultPins.AlarmLED)
	v.SetDefault("pins.relay", gpio.DefaultPins.Relay)
	v.SetDefault("poll", 5*time.Millisecond)
	v.SetDefault("heartbeat", 15*time.Minute)
	v.SetDefault("broker", "")
	v.SetDefault("http", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("diagnostics", false)
	v.SetDefault("print_state", false)
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet) error {
	path, _ := fs.GetString("config")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("capmonitor")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/capmonitor")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Validate rejects configurations the control loop cannot run with.
func (c Config) Validate() error {
	if c.Poll <= 0 {
		return fmt.Errorf("poll must be positive, got %v", c.Poll)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat)
	}
	if c.Chip == "" {
		return errors.New("chip must not be empty")
	}

	named := []struct {
		name string
		pin  int
	}{
		{"bottle", c.Pins.Bottle},
		{"cap", c.Pins.Cap},
		{"button", c.Pins.Button},
		{"bottle_led", c.Pins.BottleLED},
		{"cap_led", c.Pins.CapLED},
		{"alarm_led", c.Pins.AlarmLED},
		{"relay", c.Pins.Relay},
	}
	seen := make(map[int]string, len(named))
	for _, p := range named {
		if p.pin < 0 {
			return fmt.Errorf("pin %s must not be negative, got %d", p.name, p.pin)
		}
		if other, ok := seen[p.pin]; ok {
			return fmt.Errorf("pin %d assigned to both %s and %s", p.pin, other, p.name)
		}
		seen[p.pin] = p.name
	}
	return nil
}
