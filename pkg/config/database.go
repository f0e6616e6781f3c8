package config

import "fmt"

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string `env:"SENTRA_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"SENTRA_PG_PORT" env-default:"5432"`
	Database string `env:"SENTRA_PG_DATABASE" env-default:"sentra_db"`
	User     string `env:"SENTRA_PG_USER" env-default:"sentra"`
	Password string `env:"SENTRA_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"SENTRA_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// RedisConfig holds the connection settings for the shared TTL cache
// backing token revocation.
type RedisConfig struct {
	Addr     string `env:"SENTRA_REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"SENTRA_REDIS_PASSWORD" env-default:""`
	DB       int    `env:"SENTRA_REDIS_DB" env-default:"0"`
}
