// Package config holds the application's configuration model.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codeGROOVE-dev/winnow/feature"
	"github.com/codeGROOVE-dev/winnow/rank"
)

// Config captures event targets, collection credentials, pipeline knobs,
// and data locations.
type Config struct {
	Event      EventConfig      `yaml:"event"`
	Collection CollectionConfig `yaml:"collection"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Data       DataConfig       `yaml:"data"`
	Cache      CacheConfig      `yaml:"cache"`
}

// EventConfig identifies the event posts participants commented on.
type EventConfig struct {
	// Shortcodes of the event announcement posts.
	PostShortcodes []string `yaml:"postShortcodes"`
	// Augment the dataset with generated users up to this many unique
	// participants. Zero disables augmentation.
	TargetParticipants int `yaml:"targetParticipants"`
}

// CollectionConfig configures the Apify collection sweep.
type CollectionConfig struct {
	// Apify API token. If empty, read from env APIFY_TOKEN.
	APIFYToken string `yaml:"apifyToken"`
	// Max comments fetched per event post.
	CommentLimit int `yaml:"commentLimit"`
	// Max recent posts fetched per participant.
	PostLimit int `yaml:"postLimit"`
}

// PipelineConfig tunes feature extraction and ranking.
type PipelineConfig struct {
	// How many most-recent posts feed the engagement features.
	WindowSize int `yaml:"windowSize"`
	// Topical keywords for the running hashtag rate. Empty means the
	// built-in Korean running vocabulary.
	Keywords []string `yaml:"keywords"`
	// Selection slice sizes.
	Shortlist int `yaml:"shortlist"`
	Winners   int `yaml:"winners"`
	Reserves  int `yaml:"reserves"`
}

// DataConfig names the data directories.
type DataConfig struct {
	RawDir       string `yaml:"rawDir"`
	ProcessedDir string `yaml:"processedDir"`
}

// CacheConfig controls the HTTP response cache.
type CacheConfig struct {
	Disabled bool     `yaml:"disabled"`
	TTL      Duration `yaml:"ttl"`
}

// Duration wraps time.Duration so YAML accepts "24h" style values.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Event: EventConfig{
			PostShortcodes:     []string{"DSuGGGvDFB7", "DSuGISfjPUk", "DSlsKZGE9KS"},
			TargetParticipants: 100,
		},
		Collection: CollectionConfig{
			CommentLimit: 500,
			PostLimit:    feature.DefaultWindow,
		},
		Pipeline: PipelineConfig{
			WindowSize: feature.DefaultWindow,
			Shortlist:  rank.DefaultLimits.Shortlist,
			Winners:    rank.DefaultLimits.Winners,
			Reserves:   rank.DefaultLimits.Reserves,
		},
		Data: DataConfig{
			RawDir:       "data/raw",
			ProcessedDir: "data/processed",
		},
		Cache: CacheConfig{TTL: Duration(24 * time.Hour)},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Collection.APIFYToken == "" {
		c.Collection.APIFYToken = os.Getenv("APIFY_TOKEN")
	}
}

// Load reads YAML config from path. An empty path yields the defaults with
// environment variables resolved.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		cfg.ResolveEnv()
		return cfg, nil
	}
	b, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// KeywordList returns the configured keywords, or the built-in vocabulary
// when none is set.
func (c *Config) KeywordList() []string {
	if len(c.Pipeline.Keywords) > 0 {
		return c.Pipeline.Keywords
	}
	return feature.DefaultKeywords
}

// Limits returns the selection slice sizes as a rank.Limits.
func (c *Config) Limits() rank.Limits {
	return rank.Limits{
		Shortlist: c.Pipeline.Shortlist,
		Winners:   c.Pipeline.Winners,
		Reserves:  c.Pipeline.Reserves,
	}
}
