// Package config builds a fully wired checkpoint store from a declarative
// YAML file, so deployments can switch backends and retention rules without
// code changes.
package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smallnest/checkpointgo/checkpoint"
	"github.com/smallnest/checkpointgo/checkpoint/memory"
	"github.com/smallnest/checkpointgo/checkpoint/postgres"
	"github.com/smallnest/checkpointgo/checkpoint/redis"
	"github.com/smallnest/checkpointgo/checkpoint/sqlite"
)

// Config selects and parameterizes a backend and the retention policy.
type Config struct {
	// Backend is one of "memory", "sqlite", "postgres", "redis".
	// Default "memory".
	Backend string `yaml:"backend"`

	// StrictParents enables strict referential mode on the store.
	StrictParents bool `yaml:"strict_parents"`

	SQLite struct {
		Path      string `yaml:"path"`
		TableName string `yaml:"table_name"`
	} `yaml:"sqlite"`

	Postgres struct {
		ConnString string `yaml:"conn_string"`
		TableName  string `yaml:"table_name"`
	} `yaml:"postgres"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Retention struct {
		// KeepLatest retains the N newest checkpoints per scope. Zero
		// disables count-based retention.
		KeepLatest int `yaml:"keep_latest"`

		// MaxAge prunes checkpoints older than the window (e.g. "72h").
		// Zero disables age-based retention.
		MaxAge Duration `yaml:"max_age"`

		// Schedule is the cron expression for the background sweeper
		// (e.g. "@every 10m"). Empty disables scheduled sweeps.
		Schedule string `yaml:"schedule"`
	} `yaml:"retention"`
}

// Duration parses time.ParseDuration strings ("10m", "72h") from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"72h\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML config data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if cfg.Backend == "" {
		cfg.Backend = "memory"
	}
	return &cfg, nil
}

// Open constructs the configured backend and wraps it in a store.
func (c *Config) Open(ctx context.Context, opts ...checkpoint.Option) (*checkpoint.Store, error) {
	backend, err := c.openBackend(ctx)
	if err != nil {
		return nil, err
	}
	if c.StrictParents {
		opts = append(opts, checkpoint.WithStrictParents())
	}
	return checkpoint.New(backend, opts...), nil
}

func (c *Config) openBackend(ctx context.Context) (checkpoint.Backend, error) {
	switch c.Backend {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.New(sqlite.Options{
			Path:      c.SQLite.Path,
			TableName: c.SQLite.TableName,
		})
	case "postgres":
		return postgres.New(ctx, postgres.Options{
			ConnString: c.Postgres.ConnString,
			TableName:  c.Postgres.TableName,
		})
	case "redis":
		return redis.New(redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", c.Backend)
	}
}

// Policy returns the configured retention policy, or nil when retention is
// disabled. When both rules are set, count-based retention wins: keeping a
// bounded number of checkpoints dominates the age window.
func (c *Config) Policy() checkpoint.RetentionPolicy {
	if c.Retention.KeepLatest > 0 {
		return checkpoint.KeepLatest(c.Retention.KeepLatest)
	}
	if c.Retention.MaxAge > 0 {
		return checkpoint.MaxAge(time.Duration(c.Retention.MaxAge))
	}
	return nil
}
