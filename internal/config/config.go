// Package config loads the tenken configuration file and applies
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/tenken/internal/constants"
	"github.com/julianstephens/tenken/internal/models"
	"github.com/julianstephens/tenken/internal/utils"
)

type Config struct {
	Store       string            `yaml:"store"`
	Redis       RedisConfig       `yaml:"redis"`
	Operator    OperatorConfig    `yaml:"operator"`
	Timezone    string            `yaml:"timezone"`
	Debug       bool              `yaml:"debug"`
	CheckPolicy map[string]string `yaml:"check_policy,omitempty"`
}

type RedisConfig struct {
	Addr string        `yaml:"addr,omitempty"`
	DB   int           `yaml:"db,omitempty"`
	TTL  time.Duration `yaml:"ttl,omitempty"`
}

type OperatorConfig struct {
	Name string `yaml:"name"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

func (c *Config) ApplyDefaults() {
	if c.Store == "" {
		c.Store = constants.DefaultStorePath
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = constants.DefaultCacheTTL
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
}

// Load reads the YAML file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	path, err := utils.ExpandPath(path)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	c.ApplyDefaults()
	return &c, nil
}

// Save writes the configuration to path, creating the directory if needed.
func (c *Config) Save(path string) error {
	path, err := utils.ExpandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0600)
}

// Validate checks the values that cannot be repaired by defaults.
func (c *Config) Validate() error {
	if _, err := ParseStore(c.Store); err != nil {
		return err
	}
	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone: %q", c.Timezone)
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("invalid redis.ttl: %s", c.Redis.TTL)
	}
	for name, policy := range c.CheckPolicy {
		if _, err := models.ParseTier(name); err != nil {
			return fmt.Errorf("check_policy: %w", err)
		}
		if _, err := models.ParseCheckPolicy(policy); err != nil {
			return fmt.Errorf("check_policy.%s: %w", name, err)
		}
	}
	return nil
}

// PolicyFor returns the configured check policy of a tier, or the tier's
// default when unset or invalid.
func (c *Config) PolicyFor(tier models.Tier) models.CheckPolicy {
	if raw, ok := c.CheckPolicy[string(tier)]; ok {
		if p, err := models.ParseCheckPolicy(raw); err == nil {
			return p
		}
	}
	return tier.DefaultCheckPolicy()
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return utils.LoadLocation(c.Timezone)
}

// StoreKind names a record store backend.
type StoreKind string

const (
	StoreSQLite   StoreKind = "sqlite"
	StorePostgres StoreKind = "postgres"
	StoreAzure    StoreKind = "azure-tables"
	StoreMemory   StoreKind = "memory"
)

// StoreTarget is a parsed store URI.
type StoreTarget struct {
	Kind StoreKind
	// Target is the file path (sqlite), connection string (postgres) or
	// table name (azure-tables). Empty for memory.
	Target string
}

// ParseStore parses a store URI: sqlite:///path, a plain path,
// postgres://..., azure-tables://<table> or memory://.
func ParseStore(uri string) (StoreTarget, error) {
	uri = strings.TrimSpace(uri)
	switch {
	case uri == "":
		return StoreTarget{}, errors.New("store is not configured")
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return StoreTarget{Kind: StorePostgres, Target: uri}, nil
	case strings.HasPrefix(uri, "azure-tables://"):
		table := strings.Trim(strings.TrimPrefix(uri, "azure-tables://"), "/")
		if table == "" {
			table = constants.DefaultAzureName
		}
		return StoreTarget{Kind: StoreAzure, Target: table}, nil
	case strings.HasPrefix(uri, "memory://"):
		return StoreTarget{Kind: StoreMemory}, nil
	case strings.HasPrefix(uri, "sqlite://"):
		path := strings.TrimPrefix(uri, "sqlite://")
		if path == "" {
			return StoreTarget{}, fmt.Errorf("invalid store %q: missing sqlite path", uri)
		}
		return expandSQLite(path)
	case strings.Contains(uri, "://"):
		return StoreTarget{}, fmt.Errorf("unsupported store scheme: %q", uri)
	default:
		return expandSQLite(uri)
	}
}

func expandSQLite(path string) (StoreTarget, error) {
	p, err := utils.ExpandPath(path)
	if err != nil {
		return StoreTarget{}, err
	}
	return StoreTarget{Kind: StoreSQLite, Target: p}, nil
}
