package config

import (
	"time"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/user_service/pkg/config"
	"github.com/Skotchmaster/user_service/pkg/hash"
)

type Config struct {
	ServiceName string
	Port        string
	LogLevel    string

	DatabaseURL   string
	RedisURL      string
	RedisPoolSize int

	SecretKey    []byte
	JWTAlgorithm string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration

	CacheTTL         time.Duration
	CacheTimeout     time.Duration
	CacheDisabled    bool
	StrictRevocation bool

	Argon2      hash.Params
	HashWorkers int

	KafkaBrokers []string
	EventsTopic  string
}

// Load reads an optional .env file and the environment, exiting when a
// required variable is missing.
func Load() Config {
	_ = godotenv.Load()

	cfg := FromEnv()
	config.Must(cfg.DatabaseURL, "DATABASE_URL")
	config.Must(string(cfg.SecretKey), "SECRET_KEY")
	return cfg
}

func FromEnv() Config {
	def := hash.DefaultParams()
	return Config{
		ServiceName: config.EnvDefault("SERVICE_NAME", "user_service"),
		Port:        config.EnvDefault("SERVER_PORT", "8080"),
		LogLevel:    config.EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL:   config.EnvDefault("DATABASE_URL", ""),
		RedisURL:      config.EnvDefault("REDIS_URL", ""),
		RedisPoolSize: config.EnvIntDefault("REDIS_POOL_SIZE", 10),

		SecretKey:    []byte(config.EnvDefault("SECRET_KEY", "")),
		JWTAlgorithm: config.EnvDefault("JWT_ALGORITHM", "HS256"),
		AccessTTL:    config.EnvDurationDefault("ACCESS_TOKEN_EXPIRE_MINUTES", time.Minute, 30*time.Minute),
		RefreshTTL:   config.EnvDurationDefault("REFRESH_TOKEN_EXPIRE_DAYS", 24*time.Hour, 7*24*time.Hour),

		CacheTTL:         config.EnvDurationDefault("CACHE_TTL_SECONDS", time.Second, 5*time.Minute),
		CacheTimeout:     config.EnvDurationDefault("CACHE_TIMEOUT_MS", time.Millisecond, 150*time.Millisecond),
		CacheDisabled:    config.EnvBoolDefault("CACHE_DISABLED", false),
		StrictRevocation: config.EnvBoolDefault("TOKEN_CACHE_STRICT_REVOCATION", false),

		Argon2: hash.Params{
			TimeCost:    uint32(config.EnvIntDefault("ARGON2_TIME_COST", int(def.TimeCost))),
			MemoryKiB:   uint32(config.EnvIntDefault("ARGON2_MEMORY_KIB", int(def.MemoryKiB))),
			Parallelism: uint8(config.EnvIntDefault("ARGON2_PARALLELISM", int(def.Parallelism))),
		},
		HashWorkers: config.EnvIntDefault("HASH_WORKERS", 0),

		KafkaBrokers: config.CSV(config.EnvDefault("KAFKA_BROKERS", "")),
		EventsTopic:  config.EnvDefault("USER_EVENTS_TOPIC", "user_events"),
	}
}

func (c Config) Addr() string { return ":" + c.Port }
