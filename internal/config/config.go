package config

import "time"

// Config holds server and client configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// MaxMessageBytes caps a single websocket frame read from a realtime client.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	// MaxMessageLength caps the text of a chat message, in characters.
	MaxMessageLength int `mapstructure:"max_message_length" yaml:"max_message_length"`

	RoomTTL      time.Duration `mapstructure:"room_ttl" yaml:"room_ttl"`
	ReapInterval time.Duration `mapstructure:"reap_interval" yaml:"reap_interval"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Broker    BrokerConfig    `mapstructure:"broker" yaml:"broker"`
	Tracing   TracingConfig   `mapstructure:"tracing" yaml:"tracing"`
	Client    ClientConfig    `mapstructure:"client" yaml:"client"`
}

// RateLimitConfig bounds write requests per client IP. RPS <= 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps" yaml:"rps"`
	Burst int     `mapstructure:"burst" yaml:"burst"`
}

// StoreConfig selects the room and message storage backend.
type StoreConfig struct {
	Driver     string `mapstructure:"driver" yaml:"driver"` // sqlite or redis
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	RedisAddr  string `mapstructure:"redis_addr" yaml:"redis_addr"`
}

// BrokerConfig selects how realtime events travel between server instances.
type BrokerConfig struct {
	Driver    string `mapstructure:"driver" yaml:"driver"` // local, redis or nats
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr"`
	NATSURL   string `mapstructure:"nats_url" yaml:"nats_url"`
}

// TracingConfig controls OTLP span export. Trace context is propagated
// through the broker either way.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	ServerURL      string        `mapstructure:"server_url" yaml:"server_url"`
	Username       string        `mapstructure:"username" yaml:"username"`
	ArmDelay       time.Duration `mapstructure:"arm_delay" yaml:"arm_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"

	BrokerLocal = "local"
	BrokerRedis = "redis"
	BrokerNATS  = "nats"
)

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		MaxMessageBytes:   1 << 16,
		MaxMessageLength:  1000,
		RoomTTL:           10 * time.Minute,
		ReapInterval:      time.Second,
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
		Store: StoreConfig{
			Driver:     StoreSQLite,
			SQLitePath: "burnroom.db",
			RedisAddr:  "localhost:6379",
		},
		Broker: BrokerConfig{
			Driver:    BrokerLocal,
			RedisAddr: "localhost:6379",
			NATSURL:   "nats://localhost:4222",
		},
		Tracing: TracingConfig{
			Endpoint:    "localhost:4317",
			ServiceName: "burnroom",
		},
		Client: ClientConfig{
			ServerURL:      "http://localhost:8080",
			ArmDelay:       time.Second,
			RequestTimeout: 10 * time.Second,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.MaxMessageLength != 0 {
		c.MaxMessageLength = other.MaxMessageLength
	}
	if other.RoomTTL != 0 {
		c.RoomTTL = other.RoomTTL
	}
	if other.ReapInterval != 0 {
		c.ReapInterval = other.ReapInterval
	}
	if other.RateLimit.RPS != 0 {
		c.RateLimit.RPS = other.RateLimit.RPS
	}
	if other.RateLimit.Burst != 0 {
		c.RateLimit.Burst = other.RateLimit.Burst
	}
	if other.Store.Driver != "" {
		c.Store.Driver = other.Store.Driver
	}
	if other.Store.SQLitePath != "" {
		c.Store.SQLitePath = other.Store.SQLitePath
	}
	if other.Store.RedisAddr != "" {
		c.Store.RedisAddr = other.Store.RedisAddr
	}
	if other.Broker.Driver != "" {
		c.Broker.Driver = other.Broker.Driver
	}
	if other.Broker.RedisAddr != "" {
		c.Broker.RedisAddr = other.Broker.RedisAddr
	}
	if other.Broker.NATSURL != "" {
		c.Broker.NATSURL = other.Broker.NATSURL
	}
	if other.Tracing.Enabled {
		c.Tracing.Enabled = true
	}
	if other.Tracing.Endpoint != "" {
		c.Tracing.Endpoint = other.Tracing.Endpoint
	}
	if other.Tracing.ServiceName != "" {
		c.Tracing.ServiceName = other.Tracing.ServiceName
	}
	if other.Client.ServerURL != "" {
		c.Client.ServerURL = other.Client.ServerURL
	}
	if other.Client.Username != "" {
		c.Client.Username = other.Client.Username
	}
	if other.Client.ArmDelay != 0 {
		c.Client.ArmDelay = other.Client.ArmDelay
	}
	if other.Client.RequestTimeout != 0 {
		c.Client.RequestTimeout = other.Client.RequestTimeout
	}
}
