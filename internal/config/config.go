// Package config loads the kernel's tunable parameters -- chunk-split
// threshold, Bloom filter width, and progress interval -- from a JSONC
// config file, with defaults at the base and CLI overrides at the top.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Config holds the kernel's tunable parameters.
type Config struct {
	// BlobBits is loaded and validated but not applied: the Splitter
	// always uses the compile-time chunk.BlobBits threshold.
	BlobBits int `json:"blob_bits,omitempty"` //nolint:tagliatelle

	// BloomK selects the Bloom filter's probe count, 4 or 5.
	BloomK int `json:"bloom_k,omitempty"` //nolint:tagliatelle

	// BloomNbits selects log2 of the Bloom filter's byte-addressable
	// width.
	BloomNbits int `json:"bloom_nbits,omitempty"` //nolint:tagliatelle

	// ProgressInterval is how many merge steps elapse between advisory
	// progress lines.
	ProgressInterval uint64 `json:"progress_interval,omitempty"` //nolint:tagliatelle
}

var errFieldOutOfRange = errors.New("config: value out of range")

// ConfigFileName is the default config file name looked for in the
// working directory.
const ConfigFileName = ".dupkernel.json"

// Default returns the kernel's built-in defaults.
func Default() Config {
	return Config{
		BlobBits:         13,
		BloomK:           5,
		BloomNbits:       20,
		ProgressInterval: 10000,
	}
}

// Load resolves configuration with the following precedence (highest
// wins): defaults, then the file at path (if it exists and path is
// non-empty; missing files are not an error), then cliOverrides applied
// field-by-field wherever the corresponding has* flag is true.
func Load(path string, cliOverrides Config, hasBlobBits, hasBloomK, hasBloomNbits, hasProgressInterval bool) (Config, error) {
	cfg := Default()

	if path != "" {
		fileCfg, loaded, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = merge(cfg, fileCfg)
		}
	}

	if hasBlobBits {
		cfg.BlobBits = cliOverrides.BlobBits
	}

	if hasBloomK {
		cfg.BloomK = cliOverrides.BloomK
	}

	if hasBloomNbits {
		cfg.BloomNbits = cliOverrides.BloomNbits
	}

	if hasProgressInterval {
		cfg.ProgressInterval = cliOverrides.ProgressInterval
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadFile(path string) (Config, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("config: reading %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("config: invalid JSONC in %s: %w", path, err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("config: invalid JSON in %s: %w", path, err)
	}

	return cfg, true, nil
}

func merge(base, overlay Config) Config {
	if overlay.BlobBits != 0 {
		base.BlobBits = overlay.BlobBits
	}

	if overlay.BloomK != 0 {
		base.BloomK = overlay.BloomK
	}

	if overlay.BloomNbits != 0 {
		base.BloomNbits = overlay.BloomNbits
	}

	if overlay.ProgressInterval != 0 {
		base.ProgressInterval = overlay.ProgressInterval
	}

	return base
}

// Validate rejects parameter combinations the kernel's Bloom and
// Splitter packages would otherwise reject at call time, so a bad
// config file fails fast at load rather than on first use.
func Validate(cfg Config) error {
	if cfg.BlobBits <= 0 || cfg.BlobBits > 31 {
		return fmt.Errorf("%w: blob_bits=%d", errFieldOutOfRange, cfg.BlobBits)
	}

	switch cfg.BloomK {
	case 4:
		if cfg.BloomNbits > 37 {
			return fmt.Errorf("%w: bloom_nbits=%d exceeds max 37 for bloom_k=4", errFieldOutOfRange, cfg.BloomNbits)
		}
	case 5:
		if cfg.BloomNbits > 29 {
			return fmt.Errorf("%w: bloom_nbits=%d exceeds max 29 for bloom_k=5", errFieldOutOfRange, cfg.BloomNbits)
		}
	default:
		return fmt.Errorf("%w: bloom_k=%d must be 4 or 5", errFieldOutOfRange, cfg.BloomK)
	}

	if cfg.ProgressInterval == 0 {
		return fmt.Errorf("%w: progress_interval must be positive", errFieldOutOfRange)
	}

	return nil
}

// Format returns cfg as indented JSON.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("config: formatting: %w", err)
	}

	return string(data), nil
}
