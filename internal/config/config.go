// Package config loads the engine's tunable knobs from YAML, in the
// same shape as the teacher's database.GeneratorConfig /
// ParseGeneratorConfig / MergeGeneratorConfig trio: a typed struct, a
// loose YAML-tagged shadow struct decoded with KnownFields(true), and a
// field-by-field merge where a zero value in the override config leaves
// the base untouched.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineConfig tunes the index and value-pool internals that spec.md
// leaves as engine-chosen constants: probe depth for selectivity
// estimation, and the value pool's capacity/purge behavior.
type EngineConfig struct {
	ProbeDepth          int
	ValuePoolCapacity   int
	ValuePoolMinFree    int
	ValuePoolPurgeFrac  float64
	HashIndexBucketSize int
}

// Default returns the engine's built-in defaults, used whenever a field
// is left unset by every loaded/merged config.
func Default() EngineConfig {
	return EngineConfig{
		ProbeDepth:          3,
		ValuePoolCapacity:   4096,
		ValuePoolMinFree:    256,
		ValuePoolPurgeFrac:  0.25,
		HashIndexBucketSize: 127,
	}
}

// ParseString parses a YAML document into an EngineConfig, applying no
// defaults of its own — zero fields mean "not set" for Merge's
// benefit. An empty string parses to the zero EngineConfig.
func ParseString(yamlString string) (EngineConfig, error) {
	if yamlString == "" {
		return EngineConfig{}, nil
	}
	return parseFromBytes([]byte(yamlString))
}

// ParseFile reads configFile and parses it as YAML. A missing
// configFile path returns the zero EngineConfig rather than an error,
// matching the teacher's "no config file given" convention.
func ParseFile(configFile string) (EngineConfig, error) {
	if configFile == "" {
		return EngineConfig{}, nil
	}
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("relindex/config: read %s: %w", configFile, err)
	}
	return parseFromBytes(buf)
}

func parseFromBytes(buf []byte) (EngineConfig, error) {
	var shadow struct {
		ProbeDepth          int     `yaml:"probe_depth"`
		ValuePoolCapacity   int     `yaml:"value_pool_capacity"`
		ValuePoolMinFree    int     `yaml:"value_pool_min_free"`
		ValuePoolPurgeFrac  float64 `yaml:"value_pool_purge_fraction"`
		HashIndexBucketSize int     `yaml:"hash_index_bucket_size"`
	}

	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(&shadow); err != nil {
		return EngineConfig{}, fmt.Errorf("relindex/config: decode: %w", err)
	}

	return EngineConfig{
		ProbeDepth:          shadow.ProbeDepth,
		ValuePoolCapacity:   shadow.ValuePoolCapacity,
		ValuePoolMinFree:    shadow.ValuePoolMinFree,
		ValuePoolPurgeFrac:  shadow.ValuePoolPurgeFrac,
		HashIndexBucketSize: shadow.HashIndexBucketSize,
	}, nil
}

// Merge merges two configs, with override's set fields taking
// precedence over base's. Zero values in override leave base
// untouched, so callers can layer a file config over Default().
func Merge(base, override EngineConfig) EngineConfig {
	result := base
	if override.ProbeDepth != 0 {
		result.ProbeDepth = override.ProbeDepth
	}
	if override.ValuePoolCapacity != 0 {
		result.ValuePoolCapacity = override.ValuePoolCapacity
	}
	if override.ValuePoolMinFree != 0 {
		result.ValuePoolMinFree = override.ValuePoolMinFree
	}
	if override.ValuePoolPurgeFrac != 0 {
		result.ValuePoolPurgeFrac = override.ValuePoolPurgeFrac
	}
	if override.HashIndexBucketSize != 0 {
		result.HashIndexBucketSize = override.HashIndexBucketSize
	}
	return result
}

// MergeAll folds a list of configs left to right, each taking
// precedence over the ones before it.
func MergeAll(configs []EngineConfig) EngineConfig {
	var result EngineConfig
	for _, c := range configs {
		result = Merge(result, c)
	}
	return result
}
