package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("raffle")
	require.NoError(t, err)

	assert.Equal(t, "raffle", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.Service.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 30*time.Second, cfg.Raffle.LockTTL)
	assert.Equal(t, uint64(0), cfg.Raffle.Seed)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/raffle-test.db")
	t.Setenv("RAFFLE_SEED", "42")
	t.Setenv("RAFFLE_LOCK_TTL", "2m")

	cfg, err := Load("raffle")
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Service.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/raffle-test.db", cfg.Database.SQLitePath)
	assert.Equal(t, uint64(42), cfg.Raffle.Seed)
	assert.Equal(t, 2*time.Minute, cfg.Raffle.LockTTL)
}

func TestLoadRejectsMalformedValue(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	_, err := Load("raffle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Service:  ServiceConfig{Port: 8080},
			Database: DatabaseConfig{Driver: DriverPostgres, Host: "db", MaxConns: 4, MinConns: 1},
			Queue:    QueueConfig{Type: QueueMemory, Buffer: 10},
			Raffle:   RaffleConfig{LockTTL: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid postgres", mutate: func(c *Config) {}},
		{name: "valid sqlite", mutate: func(c *Config) {
			c.Database = DatabaseConfig{Driver: DriverSQLite, SQLitePath: "x.db"}
		}},
		{name: "bad port", mutate: func(c *Config) { c.Service.Port = 0 }, wantErr: "invalid port"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mongo" }, wantErr: "unknown store driver"},
		{name: "missing host", mutate: func(c *Config) { c.Database.Host = "" }, wantErr: "database host"},
		{name: "conns", mutate: func(c *Config) { c.Database.MinConns = 10 }, wantErr: "max_conns"},
		{name: "missing sqlite path", mutate: func(c *Config) {
			c.Database = DatabaseConfig{Driver: DriverSQLite}
		}, wantErr: "sqlite path"},
		{name: "unknown queue", mutate: func(c *Config) { c.Queue.Type = "kafka" }, wantErr: "unknown queue type"},
		{name: "empty buffer", mutate: func(c *Config) { c.Queue.Buffer = 0 }, wantErr: "queue buffer"},
		{name: "redis queue without redis", mutate: func(c *Config) { c.Queue.Type = QueueRedis }, wantErr: "REDIS_ENABLED"},
		{name: "redis queue", mutate: func(c *Config) {
			c.Queue.Type = QueueRedis
			c.Redis.Enabled = true
		}},
		{name: "lock ttl", mutate: func(c *Config) { c.Raffle.LockTTL = 0 }, wantErr: "lock ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5432, Database: "d"}}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", cfg.DatabaseURL())

	cfg.Database.Schema = "raffle_ci"
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable&search_path=raffle_ci", cfg.DatabaseURL())
}
