// Package config loads the core's configuration: vector-store connection,
// embedding provider selection, chunking parameters, and server settings
// (spec §6/§9). Layered precedence mirrors the teacher's approach: hardcoded
// defaults, then user config, then project config, then environment
// variables, validated once at the end.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete core configuration (spec §9's CoreConfig).
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Paths       PathsConfig       `yaml:"paths" json:"paths"`
	Chunking    ChunkingConfig    `yaml:"chunking" json:"chunking"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" json:"embeddings"`
	VectorStore VectorStoreConfig `yaml:"vector_store" json:"vector_store"`
	Indexing    IndexingConfig    `yaml:"indexing" json:"indexing"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Submodules  SubmoduleConfig   `yaml:"submodules" json:"submodules"`
}

// PathsConfig configures scanner include/exclude patterns (spec §4.1).
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// ChunkingConfig configures the chunker (spec §4.4).
type ChunkingConfig struct {
	ChunkSize        int  `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap     int  `yaml:"chunk_overlap" json:"chunk_overlap"`
	MaxChunkSize     int  `yaml:"max_chunk_size" json:"max_chunk_size"`
	MaxChunksPerFile int  `yaml:"max_chunks_per_file" json:"max_chunks_per_file"`
	MaxTotalChunks   int  `yaml:"max_total_chunks" json:"max_total_chunks"`
	UseTiktoken      bool `yaml:"use_tiktoken" json:"use_tiktoken"`
}

// EmbeddingsConfig configures the Embedder capability (spec §6).
type EmbeddingsConfig struct {
	Provider          string `yaml:"provider" json:"provider"`
	Model             string `yaml:"model" json:"model"`
	DimensionsOverride int   `yaml:"dimensions_override" json:"dimensions_override"`
	BatchSize         int    `yaml:"batch_size" json:"batch_size"`
	OllamaHost        string `yaml:"ollama_host" json:"ollama_host"`
	RequestTimeout    string `yaml:"request_timeout" json:"request_timeout"`
}

// VectorStoreConfig configures the VectorStore capability (spec §6).
type VectorStoreConfig struct {
	URL                string `yaml:"url" json:"url"`
	APIKey             string `yaml:"api_key" json:"api_key"`
	Distance           string `yaml:"distance" json:"distance"`
	EnableHybridSearch bool   `yaml:"enable_hybrid_search" json:"enable_hybrid_search"`
}

// IndexingConfig configures the Code/Git Indexer orchestrators (spec §4.9/4.10).
type IndexingConfig struct {
	BatchRetryAttempts int `yaml:"batch_retry_attempts" json:"batch_retry_attempts"`
	Workers            int `yaml:"workers" json:"workers"`
	MaxCommits         int `yaml:"max_commits" json:"max_commits"`
}

// ServerConfig configures the tool-call transport when serving (spec §6).
type ServerConfig struct {
	Transport      string `yaml:"transport" json:"transport"`
	Port           int    `yaml:"port" json:"port"`
	LogLevel       string `yaml:"log_level" json:"log_level"`
	RequestTimeout string `yaml:"request_timeout" json:"request_timeout"`
}

// SubmoduleConfig configures git submodule discovery (scanner supplement,
// SPEC_FULL §12).
type SubmoduleConfig struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Recursive bool     `yaml:"recursive" json:"recursive"`
	Include   []string `yaml:"include" json:"include"`
	Exclude   []string `yaml:"exclude" json:"exclude"`
}

// defaultExcludePatterns are always excluded from scanning.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
}

// New returns a Config populated with sensible defaults.
func New() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Include: []string{},
			Exclude: defaultExcludePatterns,
		},
		Chunking: ChunkingConfig{
			ChunkSize:        1500,
			ChunkOverlap:     200,
			MaxChunkSize:     8000,
			MaxChunksPerFile: 500,
			MaxTotalChunks:   200000,
			UseTiktoken:      false,
		},
		Embeddings: EmbeddingsConfig{
			Provider:           "ollama",
			Model:              "qwen3-embedding:8b",
			DimensionsOverride: 0,
			BatchSize:          32,
			OllamaHost:         "http://localhost:11434",
			RequestTimeout:     "60s",
		},
		VectorStore: VectorStoreConfig{
			URL:                "http://localhost:6334",
			Distance:           "Cosine",
			EnableHybridSearch: true,
		},
		Indexing: IndexingConfig{
			BatchRetryAttempts: 3,
			Workers:            runtime.NumCPU(),
			MaxCommits:         0,
		},
		Server: ServerConfig{
			Transport:      "stdio",
			Port:           8765,
			LogLevel:       "info",
			RequestTimeout: "30s",
		},
		Submodules: SubmoduleConfig{
			Enabled:   false,
			Recursive: true,
		},
	}
}

// appName names the per-user application directory and env var prefix.
const appName = "indexcore"

// GetUserConfigPath returns the path to the user/global configuration file,
// following the XDG Base Directory specification.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", appName, "config.yaml")
	}
	return filepath.Join(home, ".config", appName, "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := New()
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load loads configuration for dir applying, in order of increasing
// precedence: hardcoded defaults, user config, project config
// (`.indexcore.yaml`/`.yml` in dir), then INDEXCORE_* environment variables.
// The result is validated before being returned; an invalid configuration
// fails with an explanatory message (spec §6).
func Load(dir string) (*Config, error) {
	cfg := New()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".indexcore.yaml", ".indexcore.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero fields of other into c, overriding c's values.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}

	if other.Chunking.ChunkSize != 0 {
		c.Chunking.ChunkSize = other.Chunking.ChunkSize
	}
	if other.Chunking.ChunkOverlap != 0 {
		c.Chunking.ChunkOverlap = other.Chunking.ChunkOverlap
	}
	if other.Chunking.MaxChunkSize != 0 {
		c.Chunking.MaxChunkSize = other.Chunking.MaxChunkSize
	}
	if other.Chunking.MaxChunksPerFile != 0 {
		c.Chunking.MaxChunksPerFile = other.Chunking.MaxChunksPerFile
	}
	if other.Chunking.MaxTotalChunks != 0 {
		c.Chunking.MaxTotalChunks = other.Chunking.MaxTotalChunks
	}
	if other.Chunking.UseTiktoken {
		c.Chunking.UseTiktoken = other.Chunking.UseTiktoken
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.DimensionsOverride != 0 {
		c.Embeddings.DimensionsOverride = other.Embeddings.DimensionsOverride
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.RequestTimeout != "" {
		c.Embeddings.RequestTimeout = other.Embeddings.RequestTimeout
	}

	if other.VectorStore.URL != "" {
		c.VectorStore.URL = other.VectorStore.URL
	}
	if other.VectorStore.APIKey != "" {
		c.VectorStore.APIKey = other.VectorStore.APIKey
	}
	if other.VectorStore.Distance != "" {
		c.VectorStore.Distance = other.VectorStore.Distance
	}
	if other.VectorStore.EnableHybridSearch {
		c.VectorStore.EnableHybridSearch = other.VectorStore.EnableHybridSearch
	}

	if other.Indexing.BatchRetryAttempts != 0 {
		c.Indexing.BatchRetryAttempts = other.Indexing.BatchRetryAttempts
	}
	if other.Indexing.Workers != 0 {
		c.Indexing.Workers = other.Indexing.Workers
	}
	if other.Indexing.MaxCommits != 0 {
		c.Indexing.MaxCommits = other.Indexing.MaxCommits
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Server.RequestTimeout != "" {
		c.Server.RequestTimeout = other.Server.RequestTimeout
	}

	if other.Submodules.Enabled {
		c.Submodules.Enabled = other.Submodules.Enabled
	}
	if len(other.Submodules.Include) > 0 || len(other.Submodules.Exclude) > 0 || other.Submodules.Enabled {
		c.Submodules.Recursive = other.Submodules.Recursive
	}
	if len(other.Submodules.Include) > 0 {
		c.Submodules.Include = other.Submodules.Include
	}
	if len(other.Submodules.Exclude) > 0 {
		c.Submodules.Exclude = other.Submodules.Exclude
	}
}

// applyEnvOverrides applies INDEXCORE_* environment variable overrides, the
// highest-precedence configuration layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("INDEXCORE_VECTOR_STORE_URL"); v != "" {
		c.VectorStore.URL = v
	}
	if v := os.Getenv("INDEXCORE_VECTOR_STORE_API_KEY"); v != "" {
		c.VectorStore.APIKey = v
	}
	if v := os.Getenv("INDEXCORE_ENABLE_HYBRID_SEARCH"); v != "" {
		c.VectorStore.EnableHybridSearch = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("INDEXCORE_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("INDEXCORE_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("INDEXCORE_EMBEDDINGS_DIMENSIONS"); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			c.Embeddings.DimensionsOverride = d
		}
	}
	if v := os.Getenv("INDEXCORE_EMBEDDINGS_BATCH_SIZE"); v != "" {
		if b, err := strconv.Atoi(v); err == nil {
			c.Embeddings.BatchSize = b
		}
	}
	if v := os.Getenv("INDEXCORE_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("INDEXCORE_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.ChunkSize = n
		}
	}
	if v := os.Getenv("INDEXCORE_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.ChunkOverlap = n
		}
	}
	if v := os.Getenv("INDEXCORE_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("INDEXCORE_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("INDEXCORE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

// Validate checks the configuration for invalid values, per spec §6:
// "Invalid values (non-numeric, out-of-range ports, negative counts) cause
// startup failure with an explanatory message."
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize < 0 {
		return fmt.Errorf("chunking.chunk_size must be non-negative, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 {
		return fmt.Errorf("chunking.chunk_overlap must be non-negative, got %d", c.Chunking.ChunkOverlap)
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize && c.Chunking.ChunkSize > 0 {
		return fmt.Errorf("chunking.chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}
	if c.Embeddings.DimensionsOverride < 0 {
		return fmt.Errorf("embeddings.dimensions_override must be non-negative, got %d", c.Embeddings.DimensionsOverride)
	}
	if err := validateDuration(c.Embeddings.RequestTimeout); err != nil {
		return fmt.Errorf("embeddings.request_timeout is invalid: %w", err)
	}

	validDistances := map[string]bool{"Cosine": true, "Euclid": true, "Dot": true}
	if !validDistances[c.VectorStore.Distance] {
		return fmt.Errorf("vector_store.distance must be 'Cosine', 'Euclid', or 'Dot', got %s", c.VectorStore.Distance)
	}

	if c.Indexing.BatchRetryAttempts < 0 {
		return fmt.Errorf("indexing.batch_retry_attempts must be non-negative, got %d", c.Indexing.BatchRetryAttempts)
	}
	if c.Indexing.Workers < 0 {
		return fmt.Errorf("indexing.workers must be non-negative, got %d", c.Indexing.Workers)
	}
	if c.Indexing.MaxCommits < 0 {
		return fmt.Errorf("indexing.max_commits must be non-negative, got %d", c.Indexing.MaxCommits)
	}

	validTransports := map[string]bool{"stdio": true, "http": true, "sse": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio', 'http', or 'sse', got %s", c.Server.Transport)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	if err := validateDuration(c.Server.RequestTimeout); err != nil {
		return fmt.Errorf("server.request_timeout is invalid: %w", err)
	}

	return nil
}

// validateDuration gives config validation one choke point for duration
// strings, treating "" as valid (falls back to a built-in default downstream).
func validateDuration(s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("duration must be non-negative, got %s", s)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadUserConfig loads the user configuration file, returning a nil config
// and nil error when it does not exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// FindProjectRoot walks up from startDir looking for a .git directory or a
// project config file, returning the first directory that has one. Returns
// startDir (resolved to an absolute path) if neither is found anywhere above it.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve start dir: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ".indexcore.yaml")) ||
			fileExists(filepath.Join(currentDir, ".indexcore.yml")) {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)
		if parent == currentDir {
			return absDir, nil
		}
		currentDir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
