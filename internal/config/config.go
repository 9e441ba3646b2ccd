package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

// Config is shared by every binary that talks to the ledger.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	PoolThreshold  decimal.Decimal `env:"POOL_THRESHOLD" envDefault:"0.80"`
	PoolLockKey    int64           `env:"POOL_LOCK_KEY" envDefault:"7340031"`
	AccrualLockKey int64           `env:"ACCRUAL_LOCK_KEY" envDefault:"7340032"`

	DefaultInvestmentRate decimal.Decimal `env:"DEFAULT_INVESTMENT_RATE" envDefault:"0.12"`
	DefaultLoanRate       decimal.Decimal `env:"DEFAULT_LOAN_RATE" envDefault:"0.15"`
	DefaultLoanTermMonths int             `env:"DEFAULT_LOAN_TERM_MONTHS" envDefault:"12"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

// APIConfig adds the settings only the HTTP service needs.
type APIConfig struct {
	Config

	JWTSecret       string        `env:"JWT_SECRET,required,notEmpty"`
	Port            int           `env:"PORT" envDefault:"8080"`
	AccrualEnabled  bool          `env:"ACCRUAL_ENABLED" envDefault:"false"`
	AccrualInterval time.Duration `env:"ACCRUAL_INTERVAL" envDefault:"24h"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func LoadAPI() (*APIConfig, error) {
	cfg, err := env.ParseAs[APIConfig]()
	if err != nil {
		return nil, fmt.Errorf("config.LoadAPI: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.LoadAPI: %w", err)
	}
	if cfg.AccrualInterval <= 0 {
		return nil, fmt.Errorf("config.LoadAPI: ACCRUAL_INTERVAL must be positive, got %s", cfg.AccrualInterval)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !c.PoolThreshold.IsPositive() || c.PoolThreshold.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("POOL_THRESHOLD must be in (0, 1], got %s", c.PoolThreshold)
	}
	if c.PoolLockKey == c.AccrualLockKey {
		return fmt.Errorf("POOL_LOCK_KEY and ACCRUAL_LOCK_KEY must differ")
	}
	if c.DefaultInvestmentRate.IsNegative() || c.DefaultLoanRate.IsNegative() {
		return fmt.Errorf("default rates must not be negative")
	}
	if err := domain.ValidateTerm(c.DefaultLoanTermMonths); err != nil {
		return fmt.Errorf("DEFAULT_LOAN_TERM_MONTHS %d: %w", c.DefaultLoanTermMonths, err)
	}
	return nil
}
