package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and marker file configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	BackupDir string `toml:"backup_dir"`
	LogDir    string `toml:"log_dir"`
	LockFile  string `toml:"lock_file"`
	StopFile  string `toml:"stop_file"`
}

// Queue contains configuration for the remote pull queue.
type Queue struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Feed contains configuration for bulk feed harvesting.
type Feed struct {
	ChannelURL  string `toml:"channel_url"`
	Downloader  string `toml:"downloader"`
	ArchiveName string `toml:"archive_name"`
}

// Whisper contains configuration for the recognition engine.
type Whisper struct {
	Binary           string  `toml:"binary"`
	ModelDir         string  `toml:"model_dir"`
	Model            string  `toml:"model"`
	Threads          int     `toml:"threads"`
	Language         string  `toml:"language"`
	EntropyThreshold float64 `toml:"entropy_threshold"`
	EmitSRT          bool    `toml:"emit_srt"`
}

// FFmpeg contains configuration for audio conversion and loudness normalization.
type FFmpeg struct {
	Binary          string `toml:"binary"`
	NormalizeBinary string `toml:"normalize_binary"`
	SampleRate      int    `toml:"sample_rate"`
}

// Workflow contains loop timing configuration.
type Workflow struct {
	ItemPauseSeconds int `toml:"item_pause_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for scribe. It is loaded once
// at startup and never mutated afterwards.
//
// Configuration sections by subsystem:
//   - Paths: working, output, backup, and log directories plus marker files
//   - Queue: remote pull-queue endpoint for `scribe run`
//   - Feed: bulk content feed for `scribe harvest`
//   - Whisper: recognition engine binary, model, and decoding options
//   - FFmpeg: audio conversion and loudness normalization tools
//   - Workflow: pacing between queue items
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Queue    Queue    `toml:"queue"`
	Feed     Feed     `toml:"feed"`
	Whisper  Whisper  `toml:"whisper"`
	FFmpeg   FFmpeg   `toml:"ffmpeg"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. Environment variables
// (optionally supplied through a .env file) override queue credentials so
// secrets can stay out of the TOML file.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// applyEnvOverrides layers environment values over the parsed file. A .env
// file next to the process is honored when present; missing files are fine.
func applyEnvOverrides(cfg *Config) {
	_ = godotenv.Load()

	if v := strings.TrimSpace(os.Getenv("SCRIBE_QUEUE_URL")); v != "" {
		cfg.Queue.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SCRIBE_QUEUE_TOKEN")); v != "" {
		cfg.Queue.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("SCRIBE_FEED_URL")); v != "" {
		cfg.Feed.ChannelURL = v
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.WorkDir,
		c.RawDir(),
		c.AudioDir(),
		c.TranscriptDir(),
		c.Paths.OutputDir,
		c.Paths.LogDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.BackupDir) != "" {
		for _, dir := range []string{c.BackupRawDir(), c.BackupAudioDir()} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create backup directory %q: %w", dir, err)
			}
		}
	}
	return nil
}

// RawDir is where fetched media lands before conversion.
func (c *Config) RawDir() string { return filepath.Join(c.Paths.WorkDir, "raw") }

// AudioDir is where canonical mono 16 kHz PCM audio is written.
func (c *Config) AudioDir() string { return filepath.Join(c.Paths.WorkDir, "audio") }

// TranscriptDir is where the recognition engine output is collected before publish.
func (c *Config) TranscriptDir() string { return filepath.Join(c.Paths.WorkDir, "transcripts") }

// BackupRawDir holds original media retained after bulk publishing.
func (c *Config) BackupRawDir() string { return filepath.Join(c.Paths.BackupDir, "raw") }

// BackupAudioDir holds normalized audio retained after bulk publishing.
func (c *Config) BackupAudioDir() string { return filepath.Join(c.Paths.BackupDir, "audio") }

// LedgerPath is the SQLite database tracking per-episode stage completion.
func (c *Config) LedgerPath() string { return filepath.Join(c.Paths.WorkDir, "ledger.db") }

// ArchivePath is the append-only download-seen file for feed harvesting.
func (c *Config) ArchivePath() string {
	name := strings.TrimSpace(c.Feed.ArchiveName)
	if name == "" {
		name = "downloaded.txt"
	}
	return filepath.Join(c.Paths.WorkDir, name)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
