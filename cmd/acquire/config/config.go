package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/dipdup-net/go-lib/config"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Config -
type Config struct {
	Acquire    Acquire            `yaml:"acquire"`
	Source     Source             `yaml:"source"`
	Database   Database           `yaml:"database"`
	AWS        AWS                `yaml:"aws"`
	API        API                `yaml:"api"`
	Prometheus *config.Prometheus `yaml:"prometheus,omitempty" validate:"omitempty"`
}

// Substitute -
func (c *Config) Substitute() error {
	c.Acquire.Filters.normalize()
	return nil
}

// Acquire -
type Acquire struct {
	CheckpointPath  string  `yaml:"checkpoint_path" validate:"required"`
	CacheDir        string  `yaml:"cache_dir" validate:"required"`
	EntitiesPath    string  `yaml:"entities_path" validate:"omitempty"`
	SinkPath        string  `yaml:"sink_path" validate:"omitempty"`
	MaxEntities     int     `yaml:"max_entities" validate:"min=0"`
	DebugLevel      int     `yaml:"debug_level" validate:"min=0,max=2"`
	APICallsPerHour int     `yaml:"api_calls_per_hour" validate:"min=1"`
	BatchSize       int     `yaml:"batch_size" validate:"min=1,max=100"`
	SafetyThreshold int     `yaml:"safety_threshold" validate:"min=0"`
	Reserve         int     `yaml:"reserve" validate:"min=0"`
	DelayMs         int     `yaml:"delay_ms" validate:"min=0"`
	MaxRetries      uint64  `yaml:"max_retries" validate:"max=10"`
	MinPeriod       int     `yaml:"min_period" validate:"min=0"`
	Filters         Filters `yaml:"filters"`
}

// Filters - restricts the population before selection. Empty lists mean no restriction.
type Filters struct {
	Jurisdictions []string `yaml:"jurisdictions"`
	Categories    []string `yaml:"categories"`
}

func (f *Filters) normalize() {
	for i := range f.Jurisdictions {
		f.Jurisdictions[i] = strings.ToUpper(strings.TrimSpace(f.Jurisdictions[i]))
	}
	for i := range f.Categories {
		f.Categories[i] = strings.ToUpper(strings.TrimSpace(f.Categories[i]))
	}
}

// Source - external records API
type Source struct {
	BaseURL string  `yaml:"base_url" validate:"required,url"`
	APIKey  string  `yaml:"api_key" validate:"omitempty"`
	Timeout uint64  `yaml:"timeout" validate:"min=1"`
	RPS     float64 `yaml:"rps" validate:"gt=0"`
}

// Database - Postgres sink and entity list. Empty URL selects the JSONL file sink.
type Database struct {
	URL string `yaml:"url" validate:"omitempty"`
}

// AWS -
type AWS struct {
	Endpoint   string `yaml:"endpoint" validate:"omitempty,url"`
	BucketName string `yaml:"bucket_name" validate:"omitempty"`
	Region     string `yaml:"region" validate:"omitempty"`
	AccessKey  string `yaml:"access_key_id" validate:"omitempty"`
	Secret     string `yaml:"secret_access_key" validate:"omitempty"`
	Prefix     string `yaml:"prefix" validate:"omitempty"`
}

// API - read-only report server
type API struct {
	Listen string `yaml:"listen" validate:"required,hostname_port"`
}

// Default -
func Default() Config {
	return Config{
		Acquire: Acquire{
			CheckpointPath:  "data/checkpoint.json",
			CacheDir:        "data/cache",
			EntitiesPath:    "data/entities.yml",
			SinkPath:        "data/records.jsonl",
			DebugLevel:      1,
			APICallsPerHour: 900,
			BatchSize:       20,
			SafetyThreshold: 10,
			Reserve:         5,
			DelayMs:         500,
			MaxRetries:      2,
			MinPeriod:       2018,
		},
		Source: Source{
			BaseURL: "https://api.open.fec.gov/v1",
			APIKey:  "DEMO_KEY",
			Timeout: 30,
			RPS:     2,
		},
		API: API{
			Listen: "127.0.0.1:8080",
		},
	}
}

// environment overrides
const (
	EnvMaxEntities     = "MAX_ENTITIES"
	EnvDebugLevel      = "DEBUG_LEVEL"
	EnvAPICallsPerHour = "API_CALLS_PER_HOUR"
	EnvBatchSize       = "BATCH_SIZE"
	EnvCheckpointPath  = "CHECKPOINT_PATH"
	EnvCacheDir        = "CACHE_DIR"
	EnvEntitiesPath    = "ENTITIES_PATH"
	EnvAPIKey          = "FEC_API_KEY"
	EnvDatabaseURL     = "DATABASE_URL"
)

// Load - defaults, then the YAML file if any, then environment overrides
func Load(filename string) (cfg Config, err error) {
	cfg = Default()
	if filename != "" {
		if err = config.Parse(filename, &cfg); err != nil {
			return cfg, errors.Wrap(err, "parse config")
		}
	}
	if err = cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err = cfg.Substitute(); err != nil {
		return cfg, err
	}
	err = validator.New().Struct(cfg)
	return
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		EnvMaxEntities:     &c.Acquire.MaxEntities,
		EnvDebugLevel:      &c.Acquire.DebugLevel,
		EnvAPICallsPerHour: &c.Acquire.APICallsPerHour,
		EnvBatchSize:       &c.Acquire.BatchSize,
	}
	for name, target := range ints {
		value, ok := lookup(name)
		if !ok || value == "" {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return errors.Wrapf(err, "invalid %s", name)
		}
		*target = parsed
	}

	strs := map[string]*string{
		EnvCheckpointPath: &c.Acquire.CheckpointPath,
		EnvCacheDir:       &c.Acquire.CacheDir,
		EnvEntitiesPath:   &c.Acquire.EntitiesPath,
		EnvAPIKey:         &c.Source.APIKey,
		EnvDatabaseURL:    &c.Database.URL,
	}
	for name, target := range strs {
		if value, ok := lookup(name); ok {
			*target = value
		}
	}
	return nil
}
