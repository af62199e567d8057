package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/deicod/ermsearch/orm/pg"
	"github.com/deicod/ermsearch/orm/runtime"
)

const (
	defaultConfigFile = "ermsearch.yaml"
	envPrefix         = "ERMSEARCH"
)

type projectConfig struct {
	Schema   string `yaml:"schema"`
	Database struct {
		URL  string     `yaml:"url"`
		Pool poolConfig `yaml:"pool"`
	} `yaml:"database"`
	Search struct {
		JoinKind string            `yaml:"join_kind"`
		TimeZone string            `yaml:"time_zone"`
		SortKey  string            `yaml:"sort_key"`
		Context  map[string]string `yaml:"context"`
	} `yaml:"search"`
	Observability struct {
		QueryLogging bool `yaml:"query_logging"`
		EmitSpans    bool `yaml:"emit_spans"`
	} `yaml:"observability"`
}

type poolConfig struct {
	MaxConns          int32         `yaml:"max_conns"`
	MinConns          int32         `yaml:"min_conns"`
	MaxConnLifetime   time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `yaml:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `yaml:"health_check_period"`
}

func (pc poolConfig) Option() pg.Option {
	if pc == (poolConfig{}) {
		return nil
	}
	return pg.WithPoolConfig(pg.PoolConfig{
		MaxConns:          pc.MaxConns,
		MinConns:          pc.MinConns,
		MaxConnLifetime:   pc.MaxConnLifetime,
		MaxConnIdleTime:   pc.MaxConnIdleTime,
		HealthCheckPeriod: pc.HealthCheckPeriod,
	})
}

func (cfg projectConfig) JoinKind() (runtime.JoinKind, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Search.JoinKind)) {
	case "", "outer", "left", "left_outer":
		return runtime.JoinLeftOuter, nil
	case "inner":
		return runtime.JoinInner, nil
	default:
		return "", fmt.Errorf("unknown join kind %q", cfg.Search.JoinKind)
	}
}

func (cfg projectConfig) Location() (*time.Location, error) {
	if cfg.Search.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(cfg.Search.TimeZone)
}

// loadProjectConfig decodes path when it exists and applies ERMSEARCH_* environment overrides.
func loadProjectConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return projectConfig{}, err
	default:
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return projectConfig{}, fmt.Errorf("%s: %w", path, err)
		}
		if cfg.Schema != "" && !filepath.IsAbs(cfg.Schema) {
			cfg.Schema = filepath.Join(filepath.Dir(path), cfg.Schema)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *projectConfig) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{
		"schema",
		"database.url",
		"database.pool.max_conns",
		"database.pool.min_conns",
		"search.join_kind",
		"search.time_zone",
		"search.sort_key",
		"observability.query_logging",
		"observability.emit_spans",
	} {
		_ = v.BindEnv(key)
	}

	if v.IsSet("schema") {
		cfg.Schema = v.GetString("schema")
	}
	if v.IsSet("database.url") {
		cfg.Database.URL = v.GetString("database.url")
	}
	if v.IsSet("database.pool.max_conns") {
		cfg.Database.Pool.MaxConns = v.GetInt32("database.pool.max_conns")
	}
	if v.IsSet("database.pool.min_conns") {
		cfg.Database.Pool.MinConns = v.GetInt32("database.pool.min_conns")
	}
	if v.IsSet("search.join_kind") {
		cfg.Search.JoinKind = v.GetString("search.join_kind")
	}
	if v.IsSet("search.time_zone") {
		cfg.Search.TimeZone = v.GetString("search.time_zone")
	}
	if v.IsSet("search.sort_key") {
		cfg.Search.SortKey = v.GetString("search.sort_key")
	}
	if v.IsSet("observability.query_logging") {
		cfg.Observability.QueryLogging = v.GetBool("observability.query_logging")
	}
	if v.IsSet("observability.emit_spans") {
		cfg.Observability.EmitSpans = v.GetBool("observability.emit_spans")
	}
}
