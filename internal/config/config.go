package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/itsChris/qrgen/internal/output"
	"github.com/itsChris/qrgen/internal/qr"
)

// DefaultContent is encoded when no content argument is given.
const DefaultContent = "exp://192.168.100.242:8081"

// DefaultOutputPath is relative to the working directory.
const DefaultOutputPath = "expo_qr.png"

const envPrefix = "QRGEN_"

// Config holds all configuration for qrgen.
type Config struct {
	Content string        `koanf:"content"`
	Output  OutputConfig  `koanf:"output"`
	QR      QRConfig      `koanf:"qr"`
	History HistoryConfig `koanf:"history"`
	Logging LoggingConfig `koanf:"logging"`
}

// OutputConfig controls where and how the image is written.
type OutputConfig struct {
	Path     string `koanf:"path"`
	Format   string `koanf:"format"`
	Terminal bool   `koanf:"terminal"`
	Verify   bool   `koanf:"verify"`
}

// QRConfig selects the encoder backend and symbol parameters.
type QRConfig struct {
	Encoder string `koanf:"encoder"`
	Level   string `koanf:"level"`
	Scale   int    `koanf:"scale"`
}

// HistoryConfig holds SQLite history settings. An empty path disables history.
type HistoryConfig struct {
	Path string `koanf:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Dev    bool   `koanf:"dev"`
}

// flagKeys maps CLI flag names to koanf paths. Flags absent from the map
// (e.g. --config) are not configuration values.
var flagKeys = map[string]string{
	"output":    "output.path",
	"format":    "output.format",
	"terminal":  "output.terminal",
	"verify":    "output.verify",
	"encoder":   "qr.encoder",
	"level":     "qr.level",
	"scale":     "qr.scale",
	"history":   "history.path",
	"log-level": "logging.level",
	"dev-mode":  "logging.dev",
}

// Load reads configuration with priority: flags > env > yaml file > defaults.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults.
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// 2. Load YAML config file (if given).
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	// 3. Load environment variables (QRGEN_ prefix).
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"_", ".", -1,
		)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	// 4. Load CLI flags (highest priority). Unchanged flags only fill keys
	// that are still missing, which never happens after defaults.
	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that every option holds a recognized value.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Output.Path) == "" {
		return fmt.Errorf("output.path must not be empty")
	}
	if c.Output.Format != "" {
		if _, err := output.ParseFormat(c.Output.Format); err != nil {
			return fmt.Errorf("output.format: %w", err)
		}
	}
	if !qr.KnownEncoder(c.QR.Encoder) {
		return fmt.Errorf("qr.encoder: unknown encoder %q (want one of %s)",
			c.QR.Encoder, strings.Join(qr.EncoderNames(), ", "))
	}
	if _, err := qr.ParseLevel(c.QR.Level); err != nil {
		return fmt.Errorf("qr.level: %w", err)
	}
	if c.QR.Scale < 1 || c.QR.Scale > qr.MaxScale {
		return fmt.Errorf("qr.scale must be between 1 and %d, got %d", qr.MaxScale, c.QR.Scale)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// OutputFormat resolves the configured format, inferring it from the
// output path extension when unset.
func (c *Config) OutputFormat() (output.Format, error) {
	if c.Output.Format == "" {
		return output.FormatFromPath(c.Output.Path), nil
	}
	return output.ParseFormat(c.Output.Format)
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"content":         DefaultContent,
		"output.path":     DefaultOutputPath,
		"output.format":   "",
		"output.terminal": false,
		"output.verify":   false,
		"qr.encoder":      qr.EncoderSkip2,
		"qr.level":        "medium",
		"qr.scale":        qr.DefaultScale,
		"history.path":    "",
		"logging.level":   "warn",
		"logging.format":  "text",
		"logging.dev":     false,
	}

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}
