package funnel

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"shopalytics/internal/rawdata"
)

//go:embed funnel.yml
var configFile []byte

// rawConfig mirrors funnel.yml before validation.
type rawConfig struct {
	EntryURLs []string `yaml:"entry_urls"`
	Stages    []struct {
		Name string   `yaml:"name"`
		URLs []string `yaml:"urls"`
	} `yaml:"stages"`
	BillingTest struct {
		Control string `yaml:"control"`
		Variant string `yaml:"variant"`
		From    string `yaml:"from"`
		To      string `yaml:"to"`
	} `yaml:"billing_test"`
}

// Stage is one named funnel checkpoint with its matching URL set.
type Stage struct {
	Name string

	urls map[string]struct{}
}

// Matches reports whether a pageview URL belongs to this stage.
func (s Stage) Matches(url string) bool {
	_, ok := s.urls[url]
	return ok
}

// Config is a validated funnel configuration: the ordered stages, the entry
// URL set, and the billing A/B window.
type Config struct {
	stages   []Stage
	entrySet map[string]struct{}

	abControl string
	abVariant string
	abFrom    time.Time
	abTo      time.Time
}

var (
	defaultConfig *Config
	defaultErr    error
	once          sync.Once
)

// Default returns the embedded funnel configuration, parsed once.
func Default() (*Config, error) {
	once.Do(func() {
		defaultConfig, defaultErr = Parse(configFile)
	})
	return defaultConfig, defaultErr
}

// Parse builds a Config from YAML, validating stage ordering constraints.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse funnel config: %w", err)
	}

	if len(raw.EntryURLs) == 0 {
		return nil, fmt.Errorf("funnel config: entry_urls must not be empty")
	}
	if len(raw.Stages) < 2 {
		return nil, fmt.Errorf("funnel config: need at least two stages, got %d", len(raw.Stages))
	}

	cfg := &Config{
		stages:   make([]Stage, 0, len(raw.Stages)),
		entrySet: make(map[string]struct{}, len(raw.EntryURLs)),
	}
	for _, url := range raw.EntryURLs {
		cfg.entrySet[strings.TrimSpace(url)] = struct{}{}
	}

	seen := make(map[string]struct{}, len(raw.Stages))
	for _, stage := range raw.Stages {
		name := strings.TrimSpace(stage.Name)
		if name == "" {
			return nil, fmt.Errorf("funnel config: stage with empty name")
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("funnel config: duplicate stage %q", name)
		}
		seen[name] = struct{}{}

		if len(stage.URLs) == 0 {
			return nil, fmt.Errorf("funnel config: stage %q has no URLs", name)
		}
		urls := make(map[string]struct{}, len(stage.URLs))
		for _, url := range stage.URLs {
			urls[strings.TrimSpace(url)] = struct{}{}
		}
		cfg.stages = append(cfg.stages, Stage{Name: name, urls: urls})
	}

	test := raw.BillingTest
	if test.Control == "" || test.Variant == "" || test.Control == test.Variant {
		return nil, fmt.Errorf("funnel config: billing_test needs two distinct variant URLs")
	}
	cfg.abControl = strings.TrimSpace(test.Control)
	cfg.abVariant = strings.TrimSpace(test.Variant)

	from, err := time.ParseInLocation(rawdata.DatetimeLayout, test.From, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("funnel config: billing_test.from: %w", err)
	}
	to, err := time.ParseInLocation(rawdata.DatetimeLayout, test.To, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("funnel config: billing_test.to: %w", err)
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("funnel config: billing_test window is empty (%s .. %s)", test.From, test.To)
	}
	cfg.abFrom = from
	cfg.abTo = to

	return cfg, nil
}

// Stages returns the ordered stage definitions.
func (c *Config) Stages() []Stage {
	return c.stages
}

// StageNames returns the ordered stage names.
func (c *Config) StageNames() []string {
	names := make([]string, len(c.stages))
	for i, stage := range c.stages {
		names[i] = stage.Name
	}
	return names
}

// IsEntryURL reports whether a URL belongs to the configured entry set.
func (c *Config) IsEntryURL(url string) bool {
	_, ok := c.entrySet[url]
	return ok
}

// BillingVariants returns the control and variant URLs, control first.
func (c *Config) BillingVariants() (control, variant string) {
	return c.abControl, c.abVariant
}

// TestWindow returns the half-open [from, to) billing test window.
func (c *Config) TestWindow() (from, to time.Time) {
	return c.abFrom, c.abTo
}

// InTestWindow reports whether a timestamp falls inside the billing test
// window.
func (c *Config) InTestWindow(t time.Time) bool {
	return !t.Before(c.abFrom) && t.Before(c.abTo)
}
