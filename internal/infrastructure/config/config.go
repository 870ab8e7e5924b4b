package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	PersistDirect = "direct"
	PersistQueue  = "queue"
)

type Config struct {
	HTTP    HTTP    `envconfig:"HTTP"`
	DB      DB      `envconfig:"DB"`
	Redis   Redis   `envconfig:"REDIS"`
	Auth    Auth    `envconfig:"AUTH"`
	Room    Room    `envconfig:"ROOM"`
	Persist Persist `envconfig:"PERSIST"`
	Asynq   Asynq   `envconfig:"ASYNQ"`
	Log     Log     `envconfig:"LOG"`
}

type HTTP struct {
	Address           string        `envconfig:"ADDRESS" default:":8080"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	CORSOrigins       []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

type DB struct {
	URL      string `envconfig:"URL" required:"true"`
	MaxConns int32  `envconfig:"MAX_CONNS" default:"8"`
}

// Redis is optional. Without it the room cache is disabled and PERSIST_MODE=queue is rejected.
type Redis struct {
	URL string `envconfig:"URL"`
}

type Auth struct {
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer string `envconfig:"JWT_ISSUER"`
}

type Room struct {
	ChatBacklog int           `envconfig:"CHAT_BACKLOG" default:"50"`
	EvictGrace  time.Duration `envconfig:"EVICT_GRACE" default:"0s"`
	LoadTimeout time.Duration `envconfig:"LOAD_TIMEOUT" default:"5s"`
	CacheTTL    time.Duration `envconfig:"CACHE_TTL" default:"10m"`
}

type Persist struct {
	Mode        string        `envconfig:"MODE" default:"direct"`
	Buffer      int           `envconfig:"BUFFER" default:"256"`
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	Backoff     time.Duration `envconfig:"BACKOFF" default:"200ms"`
}

type Asynq struct {
	Concurrency int `envconfig:"CONCURRENCY" default:"10"`
}

type Log struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Pretty bool   `envconfig:"PRETTY" default:"false"`
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DB.URL == "" {
		return fmt.Errorf("config: DB_URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: AUTH_JWT_SECRET is required")
	}
	switch c.Persist.Mode {
	case PersistDirect:
	case PersistQueue:
		if c.Redis.URL == "" {
			return fmt.Errorf("config: PERSIST_MODE=%s requires REDIS_URL", PersistQueue)
		}
	default:
		return fmt.Errorf("config: unknown PERSIST_MODE %q", c.Persist.Mode)
	}
	if c.Room.ChatBacklog < 0 {
		return fmt.Errorf("config: ROOM_CHAT_BACKLOG must not be negative")
	}
	return nil
}
