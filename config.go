package kestrel

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the engine limits and heuristics. The zero value is not valid;
// start from DefaultConfig.
type Config struct {
	// MaxProperties caps the named properties of a single object.
	MaxProperties int `yaml:"max_properties"`
	// MaxPrototypeDepth caps the ancestor walk done by SetPrototype.
	MaxPrototypeDepth int `yaml:"max_prototype_depth"`
	// LazyWalkLimit is how many pending shape edges a lookup walks before the
	// shape's property map is materialized.
	LazyWalkLimit int `yaml:"lazy_walk_limit"`
	// GrowthSlack is the constant in the dense growth bound capacity*2+slack.
	GrowthSlack int `yaml:"growth_slack"`
	// ICPolymorphism is the number of shapes an inline cache keeps before
	// going megamorphic.
	ICPolymorphism int `yaml:"ic_polymorphism"`
}

func DefaultConfig() Config {
	return Config{
		MaxProperties:     1 << 16,
		MaxPrototypeDepth: 10000,
		LazyWalkLimit:     8,
		GrowthSlack:       10,
		ICPolymorphism:    4,
	}
}

func (c Config) Validate() error {
	switch {
	case c.MaxProperties < 1:
		return fmt.Errorf("max_properties must be positive, got %d", c.MaxProperties)
	case c.MaxPrototypeDepth < 1:
		return fmt.Errorf("max_prototype_depth must be positive, got %d", c.MaxPrototypeDepth)
	case c.LazyWalkLimit < 0:
		return fmt.Errorf("lazy_walk_limit must not be negative, got %d", c.LazyWalkLimit)
	case c.GrowthSlack < 1:
		return fmt.Errorf("growth_slack must be positive, got %d", c.GrowthSlack)
	case c.ICPolymorphism < 1:
		return fmt.Errorf("ic_polymorphism must be positive, got %d", c.ICPolymorphism)
	}
	return nil
}

// ParseConfig reads YAML on top of DefaultConfig. Unknown fields are an error.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
