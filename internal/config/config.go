package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Debug           bool          `envconfig:"BP_DEBUG" default:"false"`
	Addr            string        `envconfig:"BP_ADDR" default:":8080"`
	DatabaseURL     string        `envconfig:"BP_DATABASE_URL" default:"host=localhost user=postgres password=postgres dbname=cs2_bp port=5432 sslmode=disable"`
	JWTSecret       string        `envconfig:"BP_JWT_SECRET" default:"change-this-in-production"`
	TokenTTL        time.Duration `envconfig:"BP_TOKEN_TTL" default:"60m"`
	OperationTime   time.Duration `envconfig:"BP_OPERATION_TIME" default:"15s"`
	RecordCacheSize int           `envconfig:"BP_RECORD_CACHE_SIZE" default:"256"`
	AdminUser       string        `envconfig:"BP_ADMIN_USER" default:"admin"`
	AdminPassword   string        `envconfig:"BP_ADMIN_PASSWORD"` // seeds the admin row when set and absent
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing the config: %w", err)
	}
	return &cfg, nil
}
