package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	ListenAddr string

	RedisURL    string
	DatabaseURL string

	// BeaconURL points at the randomness beacon; empty falls back to the
	// local provider (fine for development, not for staked play).
	BeaconURL string

	// PlatformAccount receives the settlement fee.
	PlatformAccount string

	GameTTLSec int
	// MaxStake caps the per-player stake on new games; 0 disables the cap.
	MaxStake int64

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	MessageDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:      ":8080",
		PlatformAccount: "platform",
		GameTTLSec:      7 * 24 * 3600,
		MaxStake:        1_000_000_000,
		KafkaTopic:      "tabla-events",
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.BeaconURL = strings.TrimSpace(os.Getenv("BEACON_URL"))

	if v := strings.TrimSpace(os.Getenv("PLATFORM_ACCOUNT")); v != "" {
		cfg.PlatformAccount = v
	}

	if v := strings.TrimSpace(os.Getenv("GAME_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GameTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_STAKE")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxStake = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("KAFKA_ENABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.KafkaEnabled = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, s)
			}
		}
	}
	if v := strings.TrimSpace(os.Getenv("KAFKA_TOPIC")); v != "" {
		cfg.KafkaTopic = v
	}

	cfg.MessageDir = strings.TrimSpace(os.Getenv("MESSAGE_DIR"))

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}

	return cfg, nil
}
