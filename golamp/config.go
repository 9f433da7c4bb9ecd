package golamp

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds everything a dictionary build run needs.
type Config struct {
	Scheme Scheme `yaml:"scheme"`

	// Artifact output
	Output      string      `yaml:"output"`
	Format      Format      `yaml:"format"`      // json, bin
	Compression Compression `yaml:"compression"` // none, zstd, lz4

	// Workers other than 1 enables the partitioned scan; 0 denotes one worker per CPU
	Workers int `yaml:"workers"`

	// If set, enumerated classes are also written to a catalog at this path
	CatalogPath string `yaml:"catalog"`
}

// DefaultConfig returns the reference configuration writing id-dictionary.json.
func DefaultConfig() Config {
	return Config{
		Scheme:      DefaultScheme(),
		Output:      "id-dictionary.json",
		Format:      FormatJSON,
		Compression: CompressNone,
		Workers:     1,
	}
}

// LoadConfig reads a YAML config; fields absent from the file keep their DefaultConfig values.
func LoadConfig(pathname string) (Config, error) {
	cfg := DefaultConfig()
	cfg.Scheme.LampBits = 0 // derived from nBits unless the file sets it

	data, err := os.ReadFile(pathname)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %s", pathname)
	}
	return cfg, cfg.Validate()
}

// Validate normalizes the scheme and checks the output settings.
func (cfg *Config) Validate() error {
	if err := cfg.Scheme.Normalize(); err != nil {
		return err
	}
	switch cfg.Format {
	case "":
		cfg.Format = FormatJSON
	case FormatJSON, FormatBinary:
	default:
		return errors.Wrapf(ErrBadConfig, "unknown artifact format %q", cfg.Format)
	}
	switch cfg.Compression {
	case "":
		cfg.Compression = CompressNone
	case CompressNone, CompressZstd, CompressLZ4:
	default:
		return errors.Wrapf(ErrBadConfig, "unknown compression %q", cfg.Compression)
	}
	if cfg.Workers < 0 {
		return errors.Wrapf(ErrBadConfig, "workers must be >= 0, got %d", cfg.Workers)
	}
	return nil
}
