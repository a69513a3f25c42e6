package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"golang.org/x/text/currency"
)

const AppName = "dot-spend"

const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	DataDir    string           `mapstructure:"data_dir"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Currency   CurrencyConfig   `mapstructure:"currency"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Server     ServerConfig     `mapstructure:"http_server"`
	Recurring  RecurringConfig  `mapstructure:"recurring"`
	Import     ImportConfig     `mapstructure:"import"`
	Categorize CategorizeConfig `mapstructure:"categorize"`
}

type StorageConfig struct {
	Backend      string `mapstructure:"backend"`
	SQLiteFile   string `mapstructure:"sqlite_file"`
	PostgresDSN  string `mapstructure:"postgres_dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type CurrencyConfig struct {
	Base     string        `mapstructure:"base"`
	RatesURL string        `mapstructure:"rates_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type SyncConfig struct {
	Provider string        `mapstructure:"provider"`
	Folder   FolderSync    `mapstructure:"folder"`
	Git      GitSync       `mapstructure:"git"`
	GDrive   GDriveSync    `mapstructure:"gdrive"`
	Dropbox  DropboxSync   `mapstructure:"dropbox"`
	Workers  int           `mapstructure:"workers"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type FolderSync struct {
	Path string `mapstructure:"path"`
}

type GitSync struct {
	RepoPath string `mapstructure:"repo_path"`
	Remote   string `mapstructure:"remote"`
	Branch   string `mapstructure:"branch"`
}

type GDriveSync struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`
}

type DropboxSync struct {
	Token string `mapstructure:"token"`
	Path  string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenDuration time.Duration `mapstructure:"token_duration"`
}

type RecurringConfig struct {
	AutoGenerate bool `mapstructure:"auto_generate"`
}

type ImportConfig struct {
	DuplicateToleranceDays int      `mapstructure:"duplicate_tolerance_days"`
	DateFormats            []string `mapstructure:"date_formats"`
}

type CategorizeConfig struct {
	LearnFromHistory bool                 `mapstructure:"learn_from_history"`
	Rules            []CategoryRuleConfig `mapstructure:"rules"`
}

type CategoryRuleConfig struct {
	Pattern   string `mapstructure:"pattern"`
	Category  string `mapstructure:"category"`
	MinAmount string `mapstructure:"min_amount"`
	MaxAmount string `mapstructure:"max_amount"`
}

// Defaults returns the default value of every setting, keyed the way viper addresses them.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"storage.backend":                 BackendJSON,
		"storage.sqlite_file":             "expenses.db",
		"storage.max_open_conns":          4,
		"storage.max_idle_conns":          2,
		"currency.base":                   "USD",
		"currency.rates_url":              "https://api.exchangerate-api.com/v4/latest",
		"currency.cache_ttl":              24 * time.Hour,
		"currency.timeout":                10 * time.Second,
		"sync.provider":                   "",
		"sync.git.remote":                 "origin",
		"sync.git.branch":                 "main",
		"sync.dropbox.path":               "/Apps/dot-spend",
		"sync.workers":                    4,
		"sync.timeout":                    time.Minute,
		"logging.level":                   "warn",
		"logging.format":                  "text",
		"http_server.port":                8080,
		"http_server.read_timeout":        10 * time.Second,
		"http_server.write_timeout":       10 * time.Second,
		"http_server.idle_timeout":        60 * time.Second,
		"http_server.token_duration":      24 * time.Hour,
		"recurring.auto_generate":         true,
		"import.duplicate_tolerance_days": 1,
		"import.date_formats":             []string{"2006-01-02", "01/02/2006", "02/01/2006", "2006/01/02", "Jan 2, 2006", "02 Jan 2006", "20060102"},
		"categorize.learn_from_history":   true,
	}
}

// Path joins name onto the data directory.
func (c *Config) Path(name string) string {
	return filepath.Join(c.DataDir, name)
}

// ----------------- DATA DIR -----------------

// DataDirEnv overrides every other data directory resolution rule.
const DataDirEnv = "SPEND_DATA_DIR"

// ResolveDataDir picks the data directory from the override, the environment, or the
// platform convention, in that order.
func ResolveDataDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return dataDirFor(runtime.GOOS, os.Getenv, home), nil
}

func dataDirFor(goos string, getenv func(string) string, home string) string {
	if dir := getenv(DataDirEnv); dir != "" {
		return dir
	}
	if goos == "windows" {
		if base := getenv("LOCALAPPDATA"); base != "" {
			return filepath.Join(base, AppName)
		}
		return filepath.Join(home, "AppData", "Local", AppName)
	}
	if base := getenv("XDG_DATA_HOME"); base != "" {
		return filepath.Join(base, AppName)
	}
	return filepath.Join(home, ".local", "share", AppName)
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if c.DataDir == "" {
		errs = append(errs, "data_dir is required")
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Currency.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("currency config: %v", err))
	}

	if err := c.Sync.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("sync config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Import.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("import config: %v", err))
	}

	if err := c.Categorize.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("categorize config: %v", err))
	}

	if len(errs) > 0 {
		return NewValidationError(strings.Join(errs, "; "), ErrCodeInvalidConfig)
	}

	return nil
}

func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case BackendJSON, BackendSQLite:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("backend must be one of json, sqlite, postgres (got %q)", c.Backend)
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *CurrencyConfig) Validate() error {
	if _, err := currency.ParseISO(c.Base); err != nil {
		return fmt.Errorf("base %q is not an ISO 4217 code", c.Base)
	}
	if c.RatesURL != "" {
		if _, err := url.ParseRequestURI(c.RatesURL); err != nil {
			return fmt.Errorf("invalid rates_url: %w", err)
		}
	}
	return nil
}

func (c *SyncConfig) Validate() error {
	switch c.Provider {
	case "":
		return nil
	case "folder":
		if c.Folder.Path == "" {
			return errors.New("folder.path is required")
		}
	case "git":
		if c.Git.RepoPath == "" {
			return errors.New("git.repo_path is required")
		}
	case "gdrive":
		if c.GDrive.CredentialsFile == "" {
			return errors.New("gdrive.credentials_file is required")
		}
	case "dropbox":
		if c.Dropbox.Token == "" {
			return errors.New("dropbox.token is required")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Workers < 0 {
		return errors.New("workers cannot be negative")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error (got %q)", c.Level)
	}
	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("format must be json or text (got %q)", c.Format)
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		return errors.New("jwt_secret must be at least 16 characters")
	}
	return nil
}

func (c *ImportConfig) Validate() error {
	if c.DuplicateToleranceDays < 0 {
		return errors.New("duplicate_tolerance_days cannot be negative")
	}
	return nil
}

func (c *CategorizeConfig) Validate() error {
	for i, r := range c.Rules {
		if r.Category == "" {
			return fmt.Errorf("rule %d: category is required", i)
		}
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("rule %d: invalid pattern: %w", i, err)
		}
	}
	return nil
}
