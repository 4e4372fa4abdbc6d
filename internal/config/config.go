package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rzbill/geyserd/internal/filter"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	GRPC       GRPCConfig       `json:"grpc" yaml:"grpc"`
	HTTP       HTTPConfig       `json:"http" yaml:"http"`
	Engine     EngineConfig     `json:"engine" yaml:"engine"`
	Commitment CommitmentConfig `json:"commitment" yaml:"commitment"`
	Replay     ReplayConfig     `json:"replay" yaml:"replay"`
	Filters    filter.Limits    `json:"filters" yaml:"filters"`
	Source     SourceConfig     `json:"source" yaml:"source"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// GRPCConfig configures the subscriber-facing gRPC listener.
type GRPCConfig struct {
	Address string `json:"address" yaml:"address"`
	// UnixSocketPath, when set, is served in addition to Address.
	UnixSocketPath         string          `json:"unix_socket_path" yaml:"unix_socket_path"`
	TLSCertFile            string          `json:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile             string          `json:"tls_key_file" yaml:"tls_key_file"`
	XToken                 string          `json:"x_token" yaml:"x_token"`
	MaxDecodingMessageSize int             `json:"max_decoding_message_size" yaml:"max_decoding_message_size"`
	Keepalive              KeepaliveConfig `json:"keepalive" yaml:"keepalive"`
	UnaryConcurrencyLimit  int64           `json:"unary_concurrency_limit" yaml:"unary_concurrency_limit"`
	UnaryDisabled          bool            `json:"unary_disabled" yaml:"unary_disabled"`
	// Compression lists accepted/sent encodings; only "gzip" is known.
	Compression []string `json:"compression" yaml:"compression"`
}

// KeepaliveConfig maps onto HTTP/2 keepalive pings.
type KeepaliveConfig struct {
	Time    Duration `json:"time" yaml:"time"`
	Timeout Duration `json:"timeout" yaml:"timeout"`
}

type HTTPConfig struct {
	Address string `json:"address" yaml:"address"`
}

// EngineConfig sizes the fan-out engine.
type EngineConfig struct {
	IngestCapacity   int      `json:"ingest_capacity" yaml:"ingest_capacity"`
	SessionQueueSize int      `json:"session_queue_size" yaml:"session_queue_size"`
	PingInterval     Duration `json:"ping_interval" yaml:"ping_interval"`
	ShutdownGrace    Duration `json:"shutdown_grace" yaml:"shutdown_grace"`
}

type CommitmentConfig struct {
	PendingLimit    int `json:"pending_limit" yaml:"pending_limit"`
	MaxTrackedSlots int `json:"max_tracked_slots" yaml:"max_tracked_slots"`
}

// ReplayConfig selects the history window backend.
type ReplayConfig struct {
	StoredSlots uint64 `json:"stored_slots" yaml:"stored_slots"`
	MaxMessages int    `json:"max_messages" yaml:"max_messages"`
	// Backend is "memory" or "pebble".
	Backend string `json:"backend" yaml:"backend"`
	// DataDir is wiped at start; empty means DefaultDataDir()/replay.
	DataDir string `json:"data_dir" yaml:"data_dir"`
	Fsync   string `json:"fsync" yaml:"fsync"`
}

// SourceConfig drives the built-in fake generator.
type SourceConfig struct {
	Fake         bool     `json:"fake" yaml:"fake"`
	SlotInterval Duration `json:"slot_interval" yaml:"slot_interval"`
	Accounts     int      `json:"accounts" yaml:"accounts"`
	Transactions int      `json:"transactions" yaml:"transactions"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

const (
	ReplayBackendMemory = "memory"
	ReplayBackendPebble = "pebble"
)

// Default returns built-in defaults.
func Default() Config {
	return Config{
		GRPC: GRPCConfig{
			Address:                "127.0.0.1:10000",
			MaxDecodingMessageSize: 4 << 20,
			Keepalive: KeepaliveConfig{
				Time:    Duration(10 * time.Second),
				Timeout: Duration(20 * time.Second),
			},
			UnaryConcurrencyLimit: 64,
		},
		HTTP: HTTPConfig{Address: "127.0.0.1:8999"},
		Engine: EngineConfig{
			IngestCapacity:   1 << 16,
			SessionQueueSize: 1 << 14,
			PingInterval:     Duration(15 * time.Second),
			ShutdownGrace:    Duration(5 * time.Second),
		},
		Commitment: CommitmentConfig{
			PendingLimit:    1 << 14,
			MaxTrackedSlots: 4096,
		},
		Replay: ReplayConfig{
			StoredSlots: 250,
			MaxMessages: 1 << 18,
			Backend:     ReplayBackendMemory,
			Fsync:       "never",
		},
		Filters: filter.DefaultLimits(),
		Source: SourceConfig{
			SlotInterval: Duration(400 * time.Millisecond),
			Accounts:     8,
			Transactions: 4,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults. Fields absent from the file keep their
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c Config) Validate() error {
	var errs []error
	if c.GRPC.Address == "" && c.GRPC.UnixSocketPath == "" {
		errs = append(errs, errors.New("grpc: address or unix_socket_path required"))
	}
	if (c.GRPC.TLSCertFile == "") != (c.GRPC.TLSKeyFile == "") {
		errs = append(errs, errors.New("grpc: tls_cert_file and tls_key_file must be set together"))
	}
	for _, name := range c.GRPC.Compression {
		if name != "gzip" {
			errs = append(errs, fmt.Errorf("grpc: unknown compression %q", name))
		}
	}
	if c.GRPC.UnaryConcurrencyLimit < 0 {
		errs = append(errs, errors.New("grpc: unary_concurrency_limit must be >= 0"))
	}
	if c.Engine.IngestCapacity <= 0 {
		errs = append(errs, errors.New("engine: ingest_capacity must be > 0"))
	}
	if c.Engine.SessionQueueSize <= 0 {
		errs = append(errs, errors.New("engine: session_queue_size must be > 0"))
	}
	if c.Commitment.PendingLimit <= 0 {
		errs = append(errs, errors.New("commitment: pending_limit must be > 0"))
	}
	switch c.Replay.Backend {
	case ReplayBackendMemory, ReplayBackendPebble:
	default:
		errs = append(errs, fmt.Errorf("replay: unknown backend %q", c.Replay.Backend))
	}
	if c.Replay.MaxMessages < 0 {
		errs = append(errs, errors.New("replay: max_messages must be >= 0"))
	}
	if c.Filters.NameSizeLimit <= 0 || c.Filters.MaxFilters <= 0 {
		errs = append(errs, errors.New("filters: name_size_limit and max_filters must be > 0"))
	}
	return errors.Join(errs...)
}

// Duration is a time.Duration written as "15s" in config files.
type Duration time.Duration

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
