package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// MaxFeeRateBps mirrors the ledger's fee ceiling so bad deployments fail at load time.
const MaxFeeRateBps = 100

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Events   EventsConfig   `mapstructure:"events"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// LedgerConfig is the deployment-time configuration of the token ledger.
// It is only consulted when no snapshot exists yet.
type LedgerConfig struct {
	Name             string        `mapstructure:"name"`
	Symbol           string        `mapstructure:"symbol"`
	InitialSupply    string        `mapstructure:"initial_supply"` // whole tokens, e.g. "1000000"
	Admin            string        `mapstructure:"admin"`
	FeeRecipient     string        `mapstructure:"fee_recipient"`
	FeeRateBps       uint64        `mapstructure:"fee_rate_bps"`
	SnapshotDir      string        `mapstructure:"snapshot_dir"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
}

// Validate checks the genesis parameters.
func (l LedgerConfig) Validate() error {
	if !common.IsHexAddress(l.Admin) {
		return fmt.Errorf("ledger.admin: invalid address %q", l.Admin)
	}
	if !common.IsHexAddress(l.FeeRecipient) {
		return fmt.Errorf("ledger.fee_recipient: invalid address %q", l.FeeRecipient)
	}
	if common.HexToAddress(l.Admin) == (common.Address{}) {
		return errors.New("ledger.admin: zero address")
	}
	if common.HexToAddress(l.FeeRecipient) == (common.Address{}) {
		return errors.New("ledger.fee_recipient: zero address")
	}
	if l.FeeRateBps > MaxFeeRateBps {
		return fmt.Errorf("ledger.fee_rate_bps: %d exceeds %d", l.FeeRateBps, MaxFeeRateBps)
	}
	supply, err := decimal.NewFromString(l.InitialSupply)
	if err != nil {
		return fmt.Errorf("ledger.initial_supply: %w", err)
	}
	if supply.IsNegative() {
		return errors.New("ledger.initial_supply: negative")
	}
	return nil
}

type EventsConfig struct {
	RedisChannel string `mapstructure:"redis_channel"` // empty disables Redis publishing
	Websocket    bool   `mapstructure:"websocket"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: KRWX_.
// Nested keys use underscore: KRWX_DATABASE_HOST, KRWX_LEDGER_ADMIN, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "krwx_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "krwx-ledger")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("ledger.name", "KRWX Stablecoin")
	v.SetDefault("ledger.symbol", "KRWX")
	v.SetDefault("ledger.initial_supply", "1000000")
	v.SetDefault("ledger.admin", "")
	v.SetDefault("ledger.fee_recipient", "")
	v.SetDefault("ledger.fee_rate_bps", 0)
	v.SetDefault("ledger.snapshot_dir", "./data/snapshots")
	v.SetDefault("ledger.snapshot_interval", "1m")
	v.SetDefault("events.redis_channel", "ledger:events")
	v.SetDefault("events.websocket", true)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// KRWX_LEDGER_ADMIN -> ledger.admin
	v.SetEnvPrefix("KRWX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
