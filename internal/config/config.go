// Package config provides build/query configuration management with support
// for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config holds the full configuration of the build and query tooling.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Sources SourcesConfig
	Search  SearchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `validate:"oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

// StorageConfig holds the artifact paths produced by a build and consumed
// by the query engine.
type StorageConfig struct {
	// DatabasePath is the SQLite file (seforim.db).
	DatabasePath string `validate:"required"`

	// TextIndexPath is the text index directory; defaults to a sibling
	// of DatabasePath.
	TextIndexPath string `validate:"required"`

	// DictionaryPath is the optional lexical key/value store.
	DictionaryPath string

	// BatchSize is the write batch size in rows; the default is tuned
	// to roughly one MiB per batch.
	BatchSize int `validate:"gt=0"`

	// WriteReleaseInfo emits release_info.txt beside the database.
	WriteReleaseInfo bool
}

// SourcesConfig holds the upstream export locations.
type SourcesConfig struct {
	// SefariaDir is the extracted Sefaria export root (contains
	// table_of_contents.json, json/, schemas/, links/).
	SefariaDir string

	// OtzariaDir is the extracted Otzaria export root (per-book JSON,
	// CSV link files, acronymizer.db).
	OtzariaDir string

	// PrioritiesPath is the YAML manifest of base books and priority
	// ranks used by the link directionality rule.
	PrioritiesPath string

	// BlacklistPath is a TSV of (token, base) pairs removed from
	// highlight expansion.
	BlacklistPath string
}

// SearchConfig holds query-engine defaults.
type SearchConfig struct {
	// Near is the proximity slop for phrase scoring; 0 means exact
	// phrase only.
	Near int `validate:"gte=0"`

	// BaseBookOnly restricts queries to base books.
	BaseBookOnly bool
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return loadConfig(flag.CommandLine, os.Args[1:])
}

// loadConfig is the testable core of LoadConfig.
func loadConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dbPath := fs.String("db-path", "", "Path to the seforim.db SQLite file")
	indexPath := fs.String("index-path", "", "Directory for the text index (default: sibling of db)")
	dictPath := fs.String("dictionary-path", "", "Path to the lexical key/value store")
	sefariaDir := fs.String("sefaria-dir", "", "Extracted Sefaria export root")
	otzariaDir := fs.String("otzaria-dir", "", "Extracted Otzaria export root")
	prioritiesPath := fs.String("priorities", "", "YAML manifest of base-book priorities")
	blacklistPath := fs.String("blacklist", "", "TSV of expansion pairs excluded from highlighting")
	near := fs.Int("near", -1, "Phrase proximity slop (0 = exact phrase)")
	baseOnly := fs.String("base-book-only", "", "Restrict queries to base books")
	batchSize := fs.String("batch-size", "", "Write batch size in rows")
	releaseInfo := fs.String("release-info", "", "Emit release_info.txt after a build")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DatabasePath:     getConfigValue(*dbPath, "SEFORIM_DB_PATH", ""),
			TextIndexPath:    getConfigValue(*indexPath, "SEFORIM_INDEX_PATH", ""),
			DictionaryPath:   getConfigValue(*dictPath, "SEFORIM_DICTIONARY_PATH", ""),
			BatchSize:        getIntConfigValue(*batchSize, "SEFORIM_BATCH_SIZE", 2000),
			WriteReleaseInfo: getBoolConfigValue(*releaseInfo, "SEFORIM_RELEASE_INFO", false),
		},
		Sources: SourcesConfig{
			SefariaDir:     getConfigValue(*sefariaDir, "SEFARIA_DIR", ""),
			OtzariaDir:     getConfigValue(*otzariaDir, "OTZARIA_DIR", ""),
			PrioritiesPath: getConfigValue(*prioritiesPath, "SEFORIM_PRIORITIES", ""),
			BlacklistPath:  getConfigValue(*blacklistPath, "SEFORIM_BLACKLIST", ""),
		},
		Search: SearchConfig{
			BaseBookOnly: getBoolConfigValue(*baseOnly, "SEFORIM_BASE_BOOK_ONLY", false),
		},
	}

	if *near >= 0 {
		cfg.Search.Near = *near
	} else {
		cfg.Search.Near = getIntConfigValue("", "SEFORIM_NEAR", 5)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return err
	}
	return nil
}

// expandPaths expands ~, makes paths absolute, and fills path defaults.
func (c *Config) expandPaths() error {
	var err error
	if c.Storage.DatabasePath, err = expandPath(c.Storage.DatabasePath); err != nil {
		return fmt.Errorf("invalid database path: %w", err)
	}

	// The index directory defaults to a sibling of the database file.
	if c.Storage.TextIndexPath == "" && c.Storage.DatabasePath != "" {
		c.Storage.TextIndexPath = filepath.Join(filepath.Dir(c.Storage.DatabasePath), "index")
	}
	if c.Storage.TextIndexPath, err = expandPath(c.Storage.TextIndexPath); err != nil {
		return fmt.Errorf("invalid index path: %w", err)
	}

	for _, p := range []*string{
		&c.Storage.DictionaryPath,
		&c.Sources.SefariaDir,
		&c.Sources.OtzariaDir,
		&c.Sources.PrioritiesPath,
		&c.Sources.BlacklistPath,
	} {
		if *p == "" {
			continue
		}
		if *p, err = expandPath(*p); err != nil {
			return err
		}
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or
// default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts "true", "1", "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
