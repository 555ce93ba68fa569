package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"bili-tree/internal/discovery"
	"bili-tree/internal/output"
)

const (
	// EnvPrefix prefixes every environment override, e.g. BILITREE_ROOT.
	EnvPrefix = "BILITREE"
	// DefaultConfigFile is read from the working directory when no config
	// file is named explicitly.
	DefaultConfigFile = "config.json"

	defaultOutput            = "tree.json"
	defaultListenAddr        = "127.0.0.1:8080"
	defaultRefreshDebounceMS = 500
)

// ErrNoRoot is returned when no scan root was configured.
var ErrNoRoot = errors.New("root is not configured")

// Config is the resolved runtime configuration.
type Config struct {
	ConfigFile string
	Root       string
	Output     string
	Format     output.Format
	Workers    int
	Exclude    []string
	Debounce   time.Duration
	Listen     string
	Verbose    bool
}

// New returns a viper instance carrying defaults and environment bindings.
// Callers bind command-line flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("output", defaultOutput)
	v.SetDefault("format", "")
	v.SetDefault("workers", 0)
	v.SetDefault("exclude", []string{})
	v.SetDefault("debounce_ms", defaultRefreshDebounceMS)
	v.SetDefault("listen", defaultListenAddr)
	v.SetDefault("verbose", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config document (when present) and resolves every setting.
// An explicitly named config file must exist and parse; the default one is
// optional as long as root is supplied some other way.
func Load(v *viper.Viper) (Config, error) {
	path := strings.TrimSpace(v.GetString("config"))
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	path = expandHome(path)

	var cfg Config
	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		cfg.ConfigFile = path
	}

	root, err := ResolveRoot(v.GetString("root"))
	if err != nil {
		if errors.Is(err, ErrNoRoot) && cfg.ConfigFile == "" {
			return Config{}, fmt.Errorf("%w: no %s found and no --root given", err, path)
		}
		return Config{}, err
	}
	cfg.Root = root

	cfg.Output = expandHome(strings.TrimSpace(v.GetString("output")))
	if cfg.Output == "" {
		cfg.Output = defaultOutput
	}
	cfg.Format, err = output.ParseFormat(v.GetString("format"), cfg.Output)
	if err != nil {
		return Config{}, err
	}

	cfg.Workers = v.GetInt("workers")
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	cfg.Exclude = patternList(v.Get("exclude"))
	if err := discovery.ValidatePatterns(cfg.Exclude); err != nil {
		return Config{}, err
	}

	cfg.Debounce = refreshDebounce(v.GetInt("debounce_ms"))

	cfg.Listen = strings.TrimSpace(v.GetString("listen"))
	if cfg.Listen == "" {
		cfg.Listen = defaultListenAddr
	}

	cfg.Verbose = v.GetBool("verbose")
	return cfg, nil
}

// ResolveRoot expands and validates the directory that should be scanned.
func ResolveRoot(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", ErrNoRoot
	}

	abs, err := filepath.Abs(expandHome(dir))
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %s is not a directory", abs)
	}
	return abs, nil
}

// ValidateListenAddr ensures the configured listen address is restricted to localhost.
func ValidateListenAddr(addr string) error {
	addr = strings.TrimSpace(strings.ToLower(addr))
	if strings.HasPrefix(addr, "127.0.0.1:") || strings.HasPrefix(addr, "localhost:") || strings.HasPrefix(addr, "[::1]:") {
		return nil
	}
	return errors.New("listen address must bind to localhost for security")
}

func refreshDebounce(ms int) time.Duration {
	if ms < 0 {
		ms = defaultRefreshDebounceMS
	}
	return time.Duration(ms) * time.Millisecond
}

// patternList normalizes the exclude setting. Whether it comes from the
// config file, the flag or BILITREE_EXCLUDE, every value is split on commas
// outside of {a,b} groups.
func patternList(raw any) []string {
	var items []string
	switch val := raw.(type) {
	case string:
		items = splitPatterns(val)
	case []string:
		for _, item := range val {
			items = append(items, splitPatterns(item)...)
		}
	case []any:
		for _, item := range val {
			items = append(items, splitPatterns(fmt.Sprint(item))...)
		}
	}

	patterns := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			patterns = append(patterns, item)
		}
	}
	return patterns
}

func splitPatterns(value string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range value {
		switch r {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, value[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, value[start:])
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return path
}
