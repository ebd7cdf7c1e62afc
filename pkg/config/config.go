// Package config loads menuadmin settings from YAML, .env files and
// MENUADMIN_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backends accepted by Config.Backend.
const (
	BackendHTTP   = "http"
	BackendSQLite = "sqlite"
)

// DirName is the per-project directory holding config.yaml and UI state.
const DirName = ".menuadmin"

// Config is the merged configuration.
type Config struct {
	// Backend selects the Service implementation: "http" or "sqlite".
	Backend string       `yaml:"backend,omitempty"`
	API     APIConfig    `yaml:"api,omitempty"`
	SQLite  SQLiteConfig `yaml:"sqlite,omitempty"`
	UI      UIConfig     `yaml:"ui,omitempty"`

	// Source is the file the YAML came from; empty when only defaults applied.
	Source string `yaml:"-"`
}

// APIConfig configures the remote menu service.
type APIConfig struct {
	BaseURL string        `yaml:"base_url,omitempty"`
	Token   string        `yaml:"token,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// SQLiteConfig configures the offline backend.
type SQLiteConfig struct {
	Path string `yaml:"path,omitempty"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	// RefreshInterval is the poll period for the HTTP backend; 0 disables polling.
	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty"`

	// StrictParents also removes descendants of the edited node from the
	// parent choices, not just the node itself.
	StrictParents bool `yaml:"strict_parents,omitempty"`

	// StateDir holds tree-state.json. Defaults to the project's .menuadmin
	// directory, else the user config directory.
	StateDir string `yaml:"state_dir,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend: BackendHTTP,
		API: APIConfig{
			BaseURL: "http://localhost:3000",
			Timeout: 10 * time.Second,
		},
		SQLite: SQLiteConfig{Path: "menus.db"},
		UI: UIConfig{
			RefreshInterval: 30 * time.Second,
		},
	}
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendHTTP:
		if strings.TrimSpace(c.API.BaseURL) == "" {
			return fmt.Errorf("api.base_url is required for the http backend")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLite.Path) == "" {
			return fmt.Errorf("sqlite.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendHTTP, BackendSQLite)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.UI.RefreshInterval < 0 {
		return fmt.Errorf("ui.refresh_interval must not be negative")
	}
	return nil
}

// Loader resolves and merges configuration sources. The zero value uses the
// working directory, the process environment and ".env".
type Loader struct {
	// Path is an explicit config file (-config). When set it must exist.
	Path string
	// Dir is where discovery starts; the working directory when empty.
	Dir string
	// EnvFiles are read relative to Dir; missing files are skipped.
	EnvFiles []string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// UserConfigDir defaults to os.UserConfigDir.
	UserConfigDir func() (string, error)
}

// Load is Loader{Path: path}.Load().
func Load(path string) (Config, error) {
	return Loader{Path: path}.Load()
}

// Load merges, lowest precedence first: defaults, the YAML file, .env
// files, then MENUADMIN_* process environment variables.
func (l Loader) Load() (Config, error) {
	cfg := Default()

	dir := l.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return cfg, fmt.Errorf("getting working directory: %w", err)
		}
		dir = wd
	}

	path, err := l.resolvePath(dir)
	if err != nil {
		return cfg, err
	}
	if path != "" {
		if err := readYAML(path, &cfg); err != nil {
			return cfg, err
		}
		cfg.Source = path
	}

	dotenv, err := readEnvFiles(dir, l.envFiles())
	if err != nil {
		return cfg, err
	}
	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := applyEnv(&cfg, func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (l Loader) envFiles() []string {
	if l.EnvFiles != nil {
		return l.EnvFiles
	}
	return []string{".env"}
}

// resolvePath picks the config file: explicit path, then .menuadmin/config.yaml
// in the project root, then the user config directory. "" means none found.
func (l Loader) resolvePath(dir string) (string, error) {
	if l.Path != "" {
		if _, err := os.Stat(l.Path); err != nil {
			return "", fmt.Errorf("config file %s: %w", l.Path, err)
		}
		return l.Path, nil
	}

	if root, ok := findProjectRoot(dir); ok {
		candidate := filepath.Join(root, DirName, "config.yaml")
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	userDir := l.UserConfigDir
	if userDir == nil {
		userDir = os.UserConfigDir
	}
	if base, err := userDir(); err == nil && base != "" {
		candidate := filepath.Join(base, "menuadmin", "config.yaml")
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

func readYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// readEnvFiles reads existing files into one map without touching the
// process environment. Later files win.
func readEnvFiles(dir string, names []string) (map[string]string, error) {
	var found []string
	for _, name := range names {
		p := name
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		if fileExists(p) {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return map[string]string{}, nil
	}
	env, err := godotenv.Read(found...)
	if err != nil {
		return nil, fmt.Errorf("reading env files: %w", err)
	}
	return env, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("MENUADMIN_BACKEND", &cfg.Backend)
	str("MENUADMIN_API_URL", &cfg.API.BaseURL)
	str("MENUADMIN_TOKEN", &cfg.API.Token)
	str("MENUADMIN_DB", &cfg.SQLite.Path)
	str("MENUADMIN_STATE_DIR", &cfg.UI.StateDir)
	if err := dur("MENUADMIN_TIMEOUT", &cfg.API.Timeout); err != nil {
		return err
	}
	if err := dur("MENUADMIN_REFRESH_INTERVAL", &cfg.UI.RefreshInterval); err != nil {
		return err
	}
	if v, ok := lookup("MENUADMIN_STRICT_PARENTS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MENUADMIN_STRICT_PARENTS: %w", err)
		}
		cfg.UI.StrictParents = b
	}
	return nil
}

// StateDir returns the directory for persisted UI state: the configured
// value, else <project>/.menuadmin, else <user config dir>/menuadmin.
func (c *Config) StateDir() string {
	if c.UI.StateDir != "" {
		return expandHome(c.UI.StateDir)
	}
	if root, ok := DetectProjectRoot(); ok {
		return filepath.Join(root, DirName)
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "menuadmin")
	}
	return DirName
}

// Marshal renders the configuration as YAML (token redacted).
func (c Config) Marshal() ([]byte, error) {
	if c.API.Token != "" {
		c.API.Token = "********"
	}
	return yaml.Marshal(c)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
