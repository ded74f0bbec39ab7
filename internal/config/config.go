// Package config loads the daemon configuration from a YAML file, a .env
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/intake-sensor/internal/gpio"
	"github.com/sweeney/intake-sensor/internal/netinfo"
)

// Environment variables carrying endpoints and credentials.
const (
	EnvReportURL    = "INTAKE_REPORT_URL"
	EnvMQTTBroker   = "INTAKE_MQTT_BROKER"
	EnvMQTTUsername = "INTAKE_MQTT_USERNAME"
	EnvMQTTPassword = "INTAKE_MQTT_PASSWORD"
	EnvDeviceID     = "INTAKE_DEVICE_ID"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config represents the daemon configuration.
type Config struct {
	DeviceID       string        `yaml:"device_id"`
	SampleInterval time.Duration `yaml:"sample_interval"`
	ReportInterval time.Duration `yaml:"report_interval"`
	BodyWeightKg   float64       `yaml:"body_weight_kg"`
	HTTPAddr       string        `yaml:"http_addr"`

	Weight  WeightConfig  `yaml:"weight"`
	Flow    FlowConfig    `yaml:"flow"`
	Climate ClimateConfig `yaml:"climate"`
	Report  ReportConfig  `yaml:"report"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Bounds is an accepted reading range. Zero means unbounded.
type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// WeightConfig configures the load cell or its simulation.
type WeightConfig struct {
	Enabled           bool             `yaml:"enabled"`
	Simulated         bool             `yaml:"simulated"`
	Chip              string           `yaml:"chip"`
	DOUTPin           int              `yaml:"dout_pin"`
	SCKPin            int              `yaml:"sck_pin"`
	Samples           int              `yaml:"samples"`
	CalibrationFactor float64          `yaml:"calibration_factor"` // grams per raw count
	Bounds            Bounds           `yaml:"bounds"`
	Simulation        SimulationConfig `yaml:"simulation"`
}

// SimulationConfig configures the synthetic bottle.
type SimulationConfig struct {
	StartGrams float64 `yaml:"start_grams"`
	MinStep    int     `yaml:"min_step"`
	MaxStep    int     `yaml:"max_step"`
}

// FlowConfig configures the pulse flow meter.
type FlowConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Chip         string  `yaml:"chip"`
	Pin          int     `yaml:"pin"`
	PulsesPerLPM float64 `yaml:"pulses_per_liter_per_minute"`
	Bounds       Bounds  `yaml:"bounds"`
}

// ClimateConfig configures the serial temperature/humidity probe.
type ClimateConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Port              string        `yaml:"port"`
	Baud              int           `yaml:"baud"`
	Tag               string        `yaml:"tag"`
	MaxAge            time.Duration `yaml:"max_age"`
	TemperatureBounds Bounds        `yaml:"temperature_bounds"`
	HumidityBounds    Bounds        `yaml:"humidity_bounds"`
}

// ReportConfig configures report delivery.
type ReportConfig struct {
	Async      bool       `yaml:"async"`
	NetworkEnv string     `yaml:"network_env"`
	HTTP       HTTPConfig `yaml:"http"`
	MQTT       MQTTConfig `yaml:"mqtt"`
}

// HTTPConfig configures the HTTP POST sink.
type HTTPConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// MQTTConfig configures the MQTT sink.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
}

// MetricsConfig configures the optional metrics push.
type MetricsConfig struct {
	PushURL      string        `yaml:"push_url"`
	PushInterval time.Duration `yaml:"push_interval"`
}

// Default returns a configuration that runs the simulated bottle and posts
// to a local collector every five seconds.
func Default() *Config {
	return &Config{
		DeviceID:       "bottle",
		SampleInterval: time.Second,
		ReportInterval: 5 * time.Second,
		HTTPAddr:       ":80",
		Weight: WeightConfig{
			Enabled:           true,
			Simulated:         true,
			Chip:              gpio.DefaultChip,
			DOUTPin:           gpio.DefaultPinDOUT,
			SCKPin:            gpio.DefaultPinSCK,
			Samples:           10,
			CalibrationFactor: -1.0 / 7050,
			Bounds:            Bounds{Min: -100, Max: 5000},
			Simulation: SimulationConfig{
				StartGrams: 500,
				MinStep:    1,
				MaxStep:    10,
			},
		},
		Flow: FlowConfig{
			Chip:         gpio.DefaultChip,
			Pin:          gpio.DefaultPinFlow,
			PulsesPerLPM: 7.5,
			Bounds:       Bounds{Min: 0, Max: 30},
		},
		Climate: ClimateConfig{
			Port:              "/dev/ttyUSB0",
			Baud:              115200,
			Tag:               "dht",
			MaxAge:            time.Minute,
			TemperatureBounds: Bounds{Min: -40, Max: 85},
			HumidityBounds:    Bounds{Min: 0, Max: 100},
		},
		Report: ReportConfig{
			Async:      true,
			NetworkEnv: netinfo.DefaultEnvFile,
			HTTP: HTTPConfig{
				Enabled: true,
				URL:     "http://localhost:3000/api/data",
				Timeout: 3 * time.Second,
			},
			MQTT: MQTTConfig{
				Broker:      "tcp://localhost:1883",
				ClientID:    "intake-sensor",
				TopicPrefix: "hydration",
			},
		},
		Metrics: MetricsConfig{
			PushInterval: 10 * time.Second,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults;
// fields absent from the file keep their default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// LoadEnv loads variables from a .env file into the process environment
// (existing variables win) and applies the INTAKE_* overrides. A missing
// file is not an error.
func (c *Config) LoadEnv(filename string) error {
	if filename != "" {
		if err := godotenv.Load(filename); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	c.ApplyEnv()
	return nil
}

// ApplyEnv overrides endpoints and credentials from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDeviceID); v != "" {
		c.DeviceID = v
	}
	if v := os.Getenv(EnvReportURL); v != "" {
		c.Report.HTTP.URL = v
	}
	if v := os.Getenv(EnvMQTTBroker); v != "" {
		c.Report.MQTT.Broker = v
	}
	if v := os.Getenv(EnvMQTTUsername); v != "" {
		c.Report.MQTT.Username = v
	}
	if v := os.Getenv(EnvMQTTPassword); v != "" {
		c.Report.MQTT.Password = v
	}
}

// Channels lists the enabled sensor channels.
func (c *Config) Channels() []string {
	var out []string
	if c.Weight.Enabled {
		out = append(out, "weight")
	}
	if c.Flow.Enabled {
		out = append(out, "flow")
	}
	if c.Climate.Enabled {
		out = append(out, "temperature", "humidity")
	}
	return out
}

// Sinks lists the enabled report sinks.
func (c *Config) Sinks() []string {
	var out []string
	if c.Report.HTTP.Enabled {
		out = append(out, "http")
	}
	if c.Report.MQTT.Enabled {
		out = append(out, "mqtt")
	}
	return out
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.SampleInterval <= 0 {
		return fmt.Errorf("%w: sample_interval must be positive, got %v", ErrInvalid, c.SampleInterval)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("%w: report_interval must be positive, got %v", ErrInvalid, c.ReportInterval)
	}
	if len(c.Channels()) == 0 {
		return fmt.Errorf("%w: no sensor channel enabled", ErrInvalid)
	}
	if c.Weight.Enabled && !c.Weight.Simulated && c.Weight.Samples <= 0 {
		return fmt.Errorf("%w: weight.samples must be positive, got %d", ErrInvalid, c.Weight.Samples)
	}
	if c.Weight.Enabled && !c.Weight.Simulated && c.Weight.CalibrationFactor == 0 {
		return fmt.Errorf("%w: weight.calibration_factor must be non-zero", ErrInvalid)
	}
	if c.Weight.Enabled && c.Weight.Simulated {
		sim := c.Weight.Simulation
		if sim.MinStep < 0 {
			return fmt.Errorf("%w: weight.simulation.min_step must not be negative, got %d", ErrInvalid, sim.MinStep)
		}
		if sim.MaxStep < sim.MinStep {
			return fmt.Errorf("%w: weight.simulation.max_step %d is below min_step %d", ErrInvalid, sim.MaxStep, sim.MinStep)
		}
	}
	if c.Flow.Enabled && c.Flow.PulsesPerLPM <= 0 {
		return fmt.Errorf("%w: flow.pulses_per_liter_per_minute must be positive, got %v", ErrInvalid, c.Flow.PulsesPerLPM)
	}
	if c.Climate.Enabled && c.Climate.Port == "" {
		return fmt.Errorf("%w: climate.port is required", ErrInvalid)
	}
	if len(c.Sinks()) == 0 {
		return fmt.Errorf("%w: no report sink enabled", ErrInvalid)
	}
	if c.Report.HTTP.Enabled && c.Report.HTTP.URL == "" {
		return fmt.Errorf("%w: report.http.url is required", ErrInvalid)
	}
	if c.Report.MQTT.Enabled && c.Report.MQTT.Broker == "" {
		return fmt.Errorf("%w: report.mqtt.broker is required", ErrInvalid)
	}
	if c.Metrics.PushURL != "" && c.Metrics.PushInterval <= 0 {
		return fmt.Errorf("%w: metrics.push_interval must be positive", ErrInvalid)
	}
	return nil
}
