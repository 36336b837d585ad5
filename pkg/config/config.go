// Package config loads build settings from a YAML file.
//
//	module: demo
//	output: build/demo.o
//	emit: object        # object | asm | ir
//	llc: /usr/bin/llc
//	opt_level: 2
//	reloc: pic
//	target_triple: x86_64-unknown-linux-gnu
//	max_steps: 50000000
//	max_depth: 10000
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"tasm/pkg/emit"
)

const DefaultOutput = "output.o"

// Config holds every tunable of the build and run commands.
type Config struct {
	Module       string `yaml:"module"`
	Output       string `yaml:"output"`
	Emit         string `yaml:"emit"`
	LLC          string `yaml:"llc"`
	OptLevel     int    `yaml:"opt_level"`
	Reloc        string `yaml:"reloc"`
	TargetTriple string `yaml:"target_triple"`
	MaxSteps     int    `yaml:"max_steps"`
	MaxDepth     int    `yaml:"max_depth"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Module:   "tasm",
		Output:   DefaultOutput,
		Emit:     "object",
		LLC:      "llc",
		OptLevel: 2,
		Reloc:    "pic",
		MaxSteps: 50_000_000,
		MaxDepth: 10_000,
	}
}

// Load reads path over the defaults. A missing file is not an error when
// optional is set.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML data into cfg and validates the result. Unknown keys
// are rejected.
func Parse(data []byte, cfg *Config) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	if len(node.Content) > 0 {
		root := node.Content[0]
		if root.Kind != yaml.MappingNode {
			return fmt.Errorf("config must be a mapping, got %s", kindName(root.Kind))
		}
		for i := 0; i+1 < len(root.Content); i += 2 {
			if !knownKeys[root.Content[i].Value] {
				return fmt.Errorf("line %d: unknown key %q", root.Content[i].Line, root.Content[i].Value)
			}
		}
		if err := root.Decode(cfg); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

var knownKeys = map[string]bool{
	"module": true, "output": true, "emit": true, "llc": true, "opt_level": true,
	"reloc": true, "target_triple": true, "max_steps": true, "max_depth": true,
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "document"
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if _, err := emit.ParseFormat(c.Emit); err != nil {
		return err
	}
	if c.OptLevel < 0 || c.OptLevel > 3 {
		return fmt.Errorf("opt_level must be between 0 and 3, got %d", c.OptLevel)
	}
	if c.MaxSteps < 0 || c.MaxDepth < 0 {
		return fmt.Errorf("max_steps and max_depth must not be negative")
	}
	return nil
}

// ApplyEnv overrides fields from TASM_LLC, TASM_OUTPUT and TASM_TRIPLE.
func (c *Config) ApplyEnv() {
	c.LLC = envOrDefault("TASM_LLC", c.LLC)
	c.Output = envOrDefault("TASM_OUTPUT", c.Output)
	c.TargetTriple = envOrDefault("TASM_TRIPLE", c.TargetTriple)
}

// Format returns the parsed emit format.
func (c *Config) Format() emit.Format {
	f, _ := emit.ParseFormat(c.Emit)
	return f
}

// Target returns the llc settings.
func (c *Config) Target() emit.Target {
	return emit.Target{
		LLC:      c.LLC,
		Triple:   c.TargetTriple,
		OptLevel: c.OptLevel,
		Reloc:    c.Reloc,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
