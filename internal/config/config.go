package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"`
}

type LoggingCfg struct {
	RotationDays int `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

type Config struct {
	// BaseDir is the deployment base directory of the wiki API. When
	// UploadsRoot is empty the root is derived as <base_dir>/data/uploads,
	// matching the layout the service uploads into.
	BaseDir string `yaml:"base_dir" json:"base_dir"`

	// UploadsRoot, when set, is used verbatim and wins over BaseDir.
	UploadsRoot string `yaml:"uploads_root" json:"uploads_root"`

	DatabasePath string        `yaml:"database_path" json:"database_path"` // SQLite deletion history
	Prometheus   PrometheusCfg `yaml:"prometheus" json:"prometheus"`
	Logging      LoggingCfg    `yaml:"logging" json:"logging"`
}

var (
	errNoRoot      = errors.New("configuration must specify uploads_root or base_dir")
	errInvalidPath = errors.New("path must be absolute")
)

// Load reads the YAML config at path and applies environment overrides.
// A .env file in the working directory is honored when present.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays environment variables on top of file values.
// Missing .env is not an error; deployments may use real env only.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if v := strings.TrimSpace(os.Getenv("UPLOADS_GC_ROOT")); v != "" {
		c.UploadsRoot = v
	}
	if v := strings.TrimSpace(os.Getenv("UPLOADS_GC_BASE_DIR")); v != "" {
		c.BaseDir = v
	}
	if v := strings.TrimSpace(os.Getenv("UPLOADS_GC_DB")); v != "" {
		c.DatabasePath = v
	}
	if v := strings.TrimSpace(os.Getenv("UPLOADS_GC_PROM_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Prometheus.Port = port
		}
	}
}

func (c *Config) validateAndDefault() error {
	if c.UploadsRoot == "" && c.BaseDir == "" {
		return errNoRoot
	}

	if c.UploadsRoot == "" {
		base, err := cleanAbsolute(c.BaseDir)
		if err != nil {
			return fmt.Errorf("base_dir: %w", err)
		}
		c.BaseDir = base
		c.UploadsRoot = filepath.Join(base, "data", "uploads")
	} else {
		root, err := cleanAbsolute(c.UploadsRoot)
		if err != nil {
			return fmt.Errorf("uploads_root: %w", err)
		}
		c.UploadsRoot = root
	}

	if c.DatabasePath == "" {
		c.DatabasePath = "/var/lib/uploads-gc/deletions.db"
	}

	if c.Prometheus.Port == 0 {
		c.Prometheus.Port = 9090
	}

	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30
	}

	return nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}
