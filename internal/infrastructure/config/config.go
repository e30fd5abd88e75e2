package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Output drivers.
const (
	DriverGPIO = "gpio"
	DriverMQTT = "mqtt"
	DriverLog  = "log"
)

// maxChannels is the widest relay bank a sequence flag can describe.
const maxChannels = 16

// Config is the root configuration structure for the relay sequencer.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Outputs   OutputsConfig   `yaml:"outputs"`
	Player    PlayerConfig    `yaml:"player"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// DeviceConfig identifies this sequencer on the network.
type DeviceConfig struct {
	// ID is used in MQTT topics and InfluxDB tags. Keep it short and URL-safe.
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// OutputsConfig describes the relay bank.
type OutputsConfig struct {
	// Driver selects the output sink: "gpio", "mqtt" or "log".
	Driver string `yaml:"driver"`

	// Trigger is the level that switches a relay on: "high" or "low".
	Trigger string `yaml:"trigger"`

	// Channels is the number of relays (1-16). For the gpio driver it
	// defaults to the number of configured lines.
	Channels int `yaml:"channels"`

	GPIO GPIOConfig `yaml:"gpio"`
}

// GPIOConfig contains Linux GPIO character device settings.
type GPIOConfig struct {
	// Chip is the GPIO chip name, e.g. "gpiochip0".
	Chip string `yaml:"chip"`

	// Lines are the line offsets for channel 0, 1, 2, ... in order.
	Lines []int `yaml:"lines"`
}

// PlayerConfig contains control loop settings.
type PlayerConfig struct {
	// PollInterval is how often the control loop ticks the player (milliseconds).
	PollInterval int `yaml:"poll_interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains bearer token settings for the command endpoint.
// An empty secret leaves the command endpoint open.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: RELAYSEQ_SECTION_KEY
// For example: RELAYSEQ_DATABASE_PATH, RELAYSEQ_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults: eight relays on the "log"
// driver, active high, API on port 8080.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:   "relayseq",
			Name: "Light Sequencer",
		},
		Outputs: OutputsConfig{
			Driver:   DriverLog,
			Trigger:  "high",
			Channels: 8,
			GPIO: GPIOConfig{
				Chip: "gpiochip0",
			},
		},
		Player: PlayerConfig{
			PollInterval: 10,
		},
		Database: DatabaseConfig{
			Path:        "./data/relayseq.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "relayseq",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: RELAYSEQ_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("RELAYSEQ_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}

	// Outputs
	if v := os.Getenv("RELAYSEQ_OUTPUT_DRIVER"); v != "" {
		cfg.Outputs.Driver = v
	}

	// Database
	if v := os.Getenv("RELAYSEQ_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("RELAYSEQ_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("RELAYSEQ_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("RELAYSEQ_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("RELAYSEQ_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("RELAYSEQ_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("RELAYSEQ_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security
	if v := os.Getenv("RELAYSEQ_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors.
//
// It also fills in the channel count from the GPIO line list when the gpio
// driver is used without an explicit count.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Device.ID == "" {
		errs = append(errs, "device.id is required")
	} else if strings.ContainsAny(c.Device.ID, "/+# ") {
		errs = append(errs, "device.id must not contain '/', '+', '#' or spaces")
	}

	errs = append(errs, c.validateOutputs()...)

	if c.Player.PollInterval < 1 {
		errs = append(errs, "player.poll_interval must be at least 1 ms")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.WebSocket.PingInterval < 1 || c.WebSocket.PongTimeout < 1 {
		errs = append(errs, "websocket.ping_interval and websocket.pong_timeout must be at least 1 second")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// An HS256 secret shorter than the hash output is trivially brute-forced.
	const minJWTSecretLength = 32
	if s := c.Security.JWT.Secret; s != "" && len(s) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateOutputs checks the outputs section.
func (c *Config) validateOutputs() []string {
	var errs []string

	switch strings.ToLower(c.Outputs.Trigger) {
	case "high", "low", "1", "0":
	default:
		errs = append(errs, "outputs.trigger must be high or low")
	}

	switch c.Outputs.Driver {
	case DriverGPIO:
		if c.Outputs.GPIO.Chip == "" {
			errs = append(errs, "outputs.gpio.chip is required for the gpio driver")
		}
		if len(c.Outputs.GPIO.Lines) == 0 {
			errs = append(errs, "outputs.gpio.lines is required for the gpio driver")
		} else if c.Outputs.Channels == 0 {
			c.Outputs.Channels = len(c.Outputs.GPIO.Lines)
		} else if c.Outputs.Channels != len(c.Outputs.GPIO.Lines) {
			errs = append(errs, "outputs.channels must match the number of outputs.gpio.lines")
		}
	case DriverMQTT:
		if !c.MQTT.Enabled {
			errs = append(errs, "mqtt.enabled must be true for the mqtt output driver")
		}
	case DriverLog:
	default:
		errs = append(errs, fmt.Sprintf("outputs.driver %q is not one of gpio, mqtt, log", c.Outputs.Driver))
	}

	if c.Outputs.Channels < 1 || c.Outputs.Channels > maxChannels {
		errs = append(errs, "outputs.channels must be between 1 and 16")
	}

	return errs
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetPollInterval returns the control loop poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Player.PollInterval) * time.Millisecond
}
