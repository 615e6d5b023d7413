package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"1h"`

	LoginMessage string `env:"LOGIN_MESSAGE" envDefault:"login chaintable"`

	SessionTimeout time.Duration `env:"SESSION_TIMEOUT" envDefault:"10m"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`
	RoomCapacity   int           `env:"ROOM_CAPACITY" envDefault:"2"`
	DuelTargetWins int           `env:"DUEL_TARGET_WINS" envDefault:"2"`

	RPCEndpoint     string        `env:"RPC_ENDPOINT"`
	ChainID         int64         `env:"CHAIN_ID" envDefault:"1"`
	ContractAddress string        `env:"SETTLEMENT_CONTRACT"`
	OperatorKey     string        `env:"OPERATOR_KEY"`
	SettleAttempts  int           `env:"SETTLE_ATTEMPTS" envDefault:"5"`
	SettleBackoff   time.Duration `env:"SETTLE_BACKOFF" envDefault:"2s"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	PostgresDSN string `env:"POSTGRES_DSN"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	AuthRateLimit   int           `env:"AUTH_RATE_LIMIT" envDefault:"10"`
	ActionRateLimit int           `env:"ACTION_RATE_LIMIT" envDefault:"60"`
	RateWindow      time.Duration `env:"RATE_WINDOW" envDefault:"1m"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
