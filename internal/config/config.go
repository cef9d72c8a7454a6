package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".hookwarden"
	DefaultConfigFile = "config.yaml"
	DefaultLogDir     = "logs"
	DefaultPacksDir   = "packs"

	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "HOOKWARDEN_CONFIG"
	// EnvBypass disables evaluation entirely when set to "1".
	EnvBypass = "HOOKWARDEN_BYPASS"

	DefaultRecentLimit = 1000
)

// ErrInvalidConfig reports a config file that could not be used as written.
// The Config returned alongside it is always usable.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is built once per invocation and passed by value to every component.
// Nothing in the repo keeps a package-level copy.
type Config struct {
	BlockEnvAccess       bool `yaml:"block_env_access"`
	BlockDangerousDelete bool `yaml:"block_dangerous_delete"`
	AllowProjectCleanup  bool `yaml:"allow_project_cleanup"`
	WarningMode          bool `yaml:"warning_mode"`
	BlockUnknownDelete   bool `yaml:"block_unknown_delete"`
	RequireForceFlag     bool `yaml:"require_force_flag"`

	EnvWhitelistSuffixes  []string          `yaml:"env_whitelist_suffixes"`
	SafeCleanupPatterns   []string          `yaml:"safe_cleanup_patterns"`
	DangerousPathPatterns []string          `yaml:"dangerous_path_patterns"`
	DisabledCategories    []string          `yaml:"disabled_categories"`
	CategoryActions       map[string]string `yaml:"category_actions"`
	Rules                 []RuleSpec        `yaml:"rules"`

	Prompt   PromptConfig `yaml:"prompt"`
	Audit    AuditConfig  `yaml:"audit"`
	LogLevel string       `yaml:"log_level"`

	ConfigDir  string `yaml:"-"`
	ConfigPath string `yaml:"-"`
	PacksDir   string `yaml:"-"`
}

// RuleSpec is a user-declared rule. It mirrors policy.Rule so this package
// does not depend on the policy package.
type RuleSpec struct {
	ID       string `yaml:"id"`
	Group    string `yaml:"group"`
	Category string `yaml:"category"`
	Pattern  string `yaml:"pattern"`
	Case     string `yaml:"case,omitempty"`
	Action   string `yaml:"action,omitempty"`
	Reason   string `yaml:"reason,omitempty"`
}

// PromptConfig holds the content-quality thresholds.
type PromptConfig struct {
	MaxLength          int     `yaml:"max_length"`
	RepetitionMinWords int     `yaml:"repetition_min_words"`
	RepetitionRatio    float64 `yaml:"repetition_ratio"`
}

// AuditConfig controls where and how audit records are written.
type AuditConfig struct {
	Dir          string `yaml:"dir"`
	RecentLimit  int    `yaml:"recent_limit"`
	IncludeInput bool   `yaml:"include_input"`
}

// Defaults returns the built-in configuration rooted at configDir.
func Defaults(configDir string) Config {
	return Config{
		BlockEnvAccess:       false,
		BlockDangerousDelete: true,
		AllowProjectCleanup:  true,
		WarningMode:          true,
		BlockUnknownDelete:   false,
		RequireForceFlag:     false,
		EnvWhitelistSuffixes: []string{".sample", ".example", ".template", ".dist"},
		Prompt: PromptConfig{
			MaxLength:          10000,
			RepetitionMinWords: 50,
			RepetitionRatio:    0.30,
		},
		Audit: AuditConfig{
			Dir:          filepath.Join(configDir, DefaultLogDir),
			RecentLimit:  DefaultRecentLimit,
			IncludeInput: true,
		},
		LogLevel:   "warn",
		ConfigDir:  configDir,
		ConfigPath: filepath.Join(configDir, DefaultConfigFile),
		PacksDir:   filepath.Join(configDir, DefaultPacksDir),
	}
}

// Load reads the config file and overlays it on the defaults. configPath and
// logDir may be empty; HOOKWARDEN_CONFIG is consulted when configPath is.
//
// A missing file is not an error. A file that does not parse yields the
// defaults; out-of-range values fall back individually. Both cases return an
// error wrapping ErrInvalidConfig alongside a usable Config.
func Load(configPath, logDir string) (Config, error) {
	configDir := resolveConfigDir()
	cfg := Defaults(configDir)

	if configPath == "" {
		configPath = os.Getenv(EnvConfigPath)
	}
	if configPath != "" {
		cfg.ConfigPath = expandHome(configPath)
		// Packs live next to whichever config file is in use.
		cfg.PacksDir = filepath.Join(filepath.Dir(cfg.ConfigPath), DefaultPacksDir)
	}

	err := cfg.overlay(cfg.ConfigPath)
	if logDir != "" {
		cfg.Audit.Dir = expandHome(logDir)
	}
	return cfg, err
}

func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		reset := Defaults(c.ConfigDir)
		reset.ConfigPath = c.ConfigPath
		reset.PacksDir = c.PacksDir
		*c = reset
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	var problems []error
	d := Defaults(c.ConfigDir)
	if c.Prompt.MaxLength <= 0 {
		problems = append(problems, fmt.Errorf("prompt.max_length must be positive, got %d", c.Prompt.MaxLength))
		c.Prompt.MaxLength = d.Prompt.MaxLength
	}
	if c.Prompt.RepetitionMinWords < 0 {
		problems = append(problems, fmt.Errorf("prompt.repetition_min_words must not be negative, got %d", c.Prompt.RepetitionMinWords))
		c.Prompt.RepetitionMinWords = d.Prompt.RepetitionMinWords
	}
	if c.Prompt.RepetitionRatio <= 0 || c.Prompt.RepetitionRatio > 1 {
		problems = append(problems, fmt.Errorf("prompt.repetition_ratio must be in (0,1], got %v", c.Prompt.RepetitionRatio))
		c.Prompt.RepetitionRatio = d.Prompt.RepetitionRatio
	}
	if c.Audit.RecentLimit < 0 {
		problems = append(problems, fmt.Errorf("audit.recent_limit must not be negative, got %d", c.Audit.RecentLimit))
		c.Audit.RecentLimit = d.Audit.RecentLimit
	}
	if c.Audit.Dir == "" {
		c.Audit.Dir = d.Audit.Dir
	}
	c.Audit.Dir = expandHome(c.Audit.Dir)

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		problems = append(problems, fmt.Errorf("unknown log_level %q", c.LogLevel))
		c.LogLevel = d.LogLevel
	}

	// Field-level problems keep the rest of the file; only the bad values
	// fall back.
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, errors.Join(problems...))
	}
	return nil
}

// IsCategoryDisabled reports whether the named category was listed in
// disabled_categories (case-insensitive).
func (c Config) IsCategoryDisabled(category string) bool {
	for _, d := range c.DisabledCategories {
		if strings.EqualFold(d, category) {
			return true
		}
	}
	return false
}

func resolveConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return DefaultConfigDir
	}
	return filepath.Join(homeDir, DefaultConfigDir)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil || homeDir == "" {
			return path
		}
		return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
	}
	return path
}
