package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/tidwall/jsonc"
)

const (
	DefaultPort          = 8089
	DefaultShimCacheSize = 1024
)

// Config holds the settings of the CLI and the debug server.
type Config struct {
	Port uint16 `json:"port,omitempty"`
	// AppRoot is the directory of the app package.
	AppRoot string `json:"appRoot,omitempty"`
	// ResolverOptions is the resolver options file written by the build, relative to
	// AppRoot. When empty the options are computed from the installed addons.
	ResolverOptions string `json:"resolverOptions,omitempty"`
	ExternalsDir    string `json:"externalsDir,omitempty"`
	WorkDir         string `json:"workDir,omitempty"`
	AuditDB         string `json:"auditDB,omitempty"`
	LogLevel        string `json:"logLevel,omitempty"`
	LogDir          string `json:"logDir,omitempty"`
	ShimCacheSize   int    `json:"shimCacheSize,omitempty"`
	MinifyShims     bool   `json:"minifyShims,omitempty"`
}

// Load loads config from the given file. Comments and trailing commas are allowed.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("fail to read config file: %w", err)
	}
	var cfg Config
	err = json.Unmarshal(jsonc.ToJSON(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("fail to parse config: %w", err)
	}
	if cfg.AppRoot != "" && !filepath.IsAbs(cfg.AppRoot) {
		cfg.AppRoot = filepath.Join(filepath.Dir(filename), cfg.AppRoot)
	}
	return normalize(&cfg)
}

// Default returns the config used when no config file is given.
func Default() (*Config, error) {
	return normalize(&Config{})
}

func normalize(c *Config) (*Config, error) {
	var err error
	if c.Port == 0 {
		if v := os.Getenv("PORT"); v != "" {
			port, e := strconv.ParseUint(v, 10, 16)
			if e != nil {
				return nil, fmt.Errorf("invalid PORT %q", v)
			}
			c.Port = uint16(port)
		} else {
			c.Port = DefaultPort
		}
	}
	if c.AppRoot == "" {
		c.AppRoot = os.Getenv("APP_ROOT")
	}
	if c.AppRoot == "" {
		c.AppRoot, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("fail to get the current directory: %w", err)
		}
	}
	c.AppRoot, err = filepath.Abs(c.AppRoot)
	if err != nil {
		return nil, fmt.Errorf("fail to get absolute path of the app root: %w", err)
	}
	if c.WorkDir == "" {
		c.WorkDir = os.Getenv("WORK_DIR")
	}
	if c.WorkDir == "" {
		c.WorkDir = filepath.Join(c.AppRoot, "node_modules", ".embroider")
	} else {
		c.WorkDir, err = filepath.Abs(c.WorkDir)
		if err != nil {
			return nil, fmt.Errorf("fail to get absolute path of the work directory: %w", err)
		}
	}
	if c.ResolverOptions != "" && !filepath.IsAbs(c.ResolverOptions) {
		c.ResolverOptions = filepath.Join(c.AppRoot, c.ResolverOptions)
	}
	if c.ExternalsDir == "" {
		c.ExternalsDir = os.Getenv("EXTERNALS_DIR")
	}
	if c.ExternalsDir == "" {
		c.ExternalsDir = filepath.Join(c.WorkDir, "externals")
	} else if !filepath.IsAbs(c.ExternalsDir) {
		c.ExternalsDir = filepath.Join(c.AppRoot, c.ExternalsDir)
	}
	if c.AuditDB == "" {
		c.AuditDB = os.Getenv("AUDIT_DB")
	}
	if c.AuditDB == "" {
		c.AuditDB = filepath.Join(c.WorkDir, "audit.db")
	}
	if c.LogLevel == "" {
		c.LogLevel = os.Getenv("LOG_LEVEL")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogDir == "" {
		c.LogDir = os.Getenv("LOG_DIR")
	}
	if c.LogDir == "" {
		c.LogDir = filepath.Join(c.WorkDir, "log")
	}
	if c.ShimCacheSize <= 0 {
		c.ShimCacheSize = DefaultShimCacheSize
	}
	return c, nil
}
