package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// FromEnv overlays GEYSER_* environment variables onto cfg. Values that do
// not parse are ignored.
func FromEnv(cfg *Config) {
	if v := os.Getenv("GEYSER_GRPC_ADDRESS"); v != "" {
		cfg.GRPC.Address = v
	}
	if v := os.Getenv("GEYSER_GRPC_UNIX_SOCKET_PATH"); v != "" {
		cfg.GRPC.UnixSocketPath = v
	}
	if v := os.Getenv("GEYSER_GRPC_TLS_CERT_FILE"); v != "" {
		cfg.GRPC.TLSCertFile = v
	}
	if v := os.Getenv("GEYSER_GRPC_TLS_KEY_FILE"); v != "" {
		cfg.GRPC.TLSKeyFile = v
	}
	if v := os.Getenv("GEYSER_GRPC_X_TOKEN"); v != "" {
		cfg.GRPC.XToken = v
	}
	envInt("GEYSER_GRPC_MAX_DECODING_MESSAGE_SIZE", &cfg.GRPC.MaxDecodingMessageSize)
	if v := os.Getenv("GEYSER_GRPC_UNARY_CONCURRENCY_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.GRPC.UnaryConcurrencyLimit = n
		}
	}
	envBool("GEYSER_GRPC_UNARY_DISABLED", &cfg.GRPC.UnaryDisabled)
	if v := os.Getenv("GEYSER_GRPC_COMPRESSION"); v != "" {
		cfg.GRPC.Compression = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.GRPC.Compression = append(cfg.GRPC.Compression, p)
			}
		}
	}
	if v := os.Getenv("GEYSER_HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}

	envInt("GEYSER_ENGINE_INGEST_CAPACITY", &cfg.Engine.IngestCapacity)
	envInt("GEYSER_ENGINE_SESSION_QUEUE_SIZE", &cfg.Engine.SessionQueueSize)
	envDuration("GEYSER_ENGINE_PING_INTERVAL", &cfg.Engine.PingInterval)
	envDuration("GEYSER_ENGINE_SHUTDOWN_GRACE", &cfg.Engine.ShutdownGrace)
	envInt("GEYSER_COMMITMENT_PENDING_LIMIT", &cfg.Commitment.PendingLimit)
	envInt("GEYSER_COMMITMENT_MAX_TRACKED_SLOTS", &cfg.Commitment.MaxTrackedSlots)

	if v := os.Getenv("GEYSER_REPLAY_STORED_SLOTS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Replay.StoredSlots = n
		}
	}
	envInt("GEYSER_REPLAY_MAX_MESSAGES", &cfg.Replay.MaxMessages)
	if v := os.Getenv("GEYSER_REPLAY_BACKEND"); v != "" {
		cfg.Replay.Backend = v
	}
	if v := os.Getenv("GEYSER_REPLAY_DATA_DIR"); v != "" {
		cfg.Replay.DataDir = v
	}
	if v := os.Getenv("GEYSER_REPLAY_FSYNC"); v != "" {
		cfg.Replay.Fsync = v
	}

	envInt("GEYSER_FILTERS_NAME_SIZE_LIMIT", &cfg.Filters.NameSizeLimit)
	envInt("GEYSER_FILTERS_MAX_FILTERS", &cfg.Filters.MaxFilters)
	envInt("GEYSER_FILTERS_MAX_ENCODED_SIZE", &cfg.Filters.MaxEncodedSize)

	envBool("GEYSER_SOURCE_FAKE", &cfg.Source.Fake)
	envDuration("GEYSER_SOURCE_SLOT_INTERVAL", &cfg.Source.SlotInterval)

	if v := os.Getenv("GEYSER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("GEYSER_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}
