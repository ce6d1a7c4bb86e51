// Package config loads the layered scour configuration: built-in defaults,
// then .scour/config.toml, then SCOUR_* environment variables. The loader
// is lenient about unknown keys so older binaries survive newer configs.
package config

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var configLog = log.New(os.Stderr, "[scour:config] ", log.Ltime)

// EnvPrefix is the environment variable namespace.
const EnvPrefix = "SCOUR_"

// Defaults.
const (
	DefaultTargetStrictScore  = 95
	DefaultReviewMaxAgeDays   = 30
	DefaultHolisticMaxAgeDays = 30
	DefaultNoiseBudget        = 10
	DefaultToolTimeout        = 120 * time.Second
	DefaultScanTimeout        = 20 * time.Minute
)

// Language holds per-language overrides.
type Language struct {
	LargeFilesThreshold int `koanf:"large_files_threshold"`
	ComplexityThreshold int `koanf:"complexity_threshold"`
	Disabled            bool `koanf:"disabled"`
}

// Config is the resolved configuration for one repository.
type Config struct {
	TargetStrictScore  int `koanf:"target_strict_score"`
	ReviewMaxAgeDays   int `koanf:"review_max_age_days"`
	HolisticMaxAgeDays int `koanf:"holistic_max_age_days"`

	// Exclude removes paths from the scan entirely; Ignore keeps scanning
	// but suppresses the findings.
	Exclude []string `koanf:"exclude"`
	Ignore  []string `koanf:"ignore"`

	// ZoneOverrides maps path patterns to zone names.
	ZoneOverrides map[string]string `koanf:"zone_overrides"`

	LargeFilesThreshold int `koanf:"large_files_threshold"`

	FindingNoiseBudget       int `koanf:"finding_noise_budget"`
	FindingNoiseGlobalBudget int `koanf:"finding_noise_global_budget"`

	Languages map[string]Language `koanf:"languages"`

	ToolTimeout time.Duration `koanf:"tool_timeout"`
	ScanTimeout time.Duration `koanf:"scan_timeout"`
}

// knownKeys are the recognized top-level keys; anything else is warned
// about and ignored.
var knownKeys = map[string]bool{
	"target_strict_score":         true,
	"review_max_age_days":         true,
	"holistic_max_age_days":       true,
	"exclude":                     true,
	"ignore":                      true,
	"zone_overrides":              true,
	"large_files_threshold":       true,
	"finding_noise_budget":        true,
	"finding_noise_global_budget": true,
	"languages":                   true,
	"tool_timeout":                true,
	"scan_timeout":                true,
}

func defaults() map[string]any {
	return map[string]any{
		"target_strict_score":         DefaultTargetStrictScore,
		"review_max_age_days":         DefaultReviewMaxAgeDays,
		"holistic_max_age_days":       DefaultHolisticMaxAgeDays,
		"finding_noise_budget":        DefaultNoiseBudget,
		"finding_noise_global_budget": 0,
		"tool_timeout":                DefaultToolTimeout,
		"scan_timeout":                DefaultScanTimeout,
	}
}

// Load resolves configuration for the repo's config file path. A missing
// file is fine; an unparseable one is fatal.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
			warnUnknownKeys(k, path)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.TargetStrictScore < 0 || c.TargetStrictScore > 100 {
		return fmt.Errorf("target_strict_score %d out of range [0,100]", c.TargetStrictScore)
	}
	if c.FindingNoiseBudget < 0 || c.FindingNoiseGlobalBudget < 0 {
		return fmt.Errorf("noise budgets must be non-negative")
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = DefaultToolTimeout
	}
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = DefaultScanTimeout
	}
	return nil
}

func warnUnknownKeys(k *koanf.Koanf, path string) {
	var unknown []string
	for _, key := range k.Keys() {
		top := key
		if i := strings.Index(key, "."); i >= 0 {
			top = key[:i]
		}
		if !knownKeys[top] {
			unknown = append(unknown, top)
		}
	}
	if len(unknown) == 0 {
		return
	}
	sort.Strings(unknown)
	seen := make(map[string]bool)
	for _, key := range unknown {
		if !seen[key] {
			seen[key] = true
			configLog.Printf("%s: unknown key %q ignored", path, key)
		}
	}
}
