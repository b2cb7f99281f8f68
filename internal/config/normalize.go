package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeQueue()
	c.normalizeFeed()
	if err := c.normalizeWhisper(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.BackupDir) != "" {
		if c.Paths.BackupDir, err = expandPath(c.Paths.BackupDir); err != nil {
			return fmt.Errorf("paths.backup_dir: %w", err)
		}
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockFile) == "" {
		c.Paths.LockFile = defaultLockFile
	}
	if c.Paths.LockFile, err = expandPath(c.Paths.LockFile); err != nil {
		return fmt.Errorf("paths.lock_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.StopFile) == "" {
		c.Paths.StopFile = filepath.Join(c.Paths.WorkDir, defaultStopFileName)
	}
	if c.Paths.StopFile, err = expandPath(c.Paths.StopFile); err != nil {
		return fmt.Errorf("paths.stop_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeQueue() {
	c.Queue.BaseURL = strings.TrimRight(strings.TrimSpace(c.Queue.BaseURL), "/")
	c.Queue.Token = strings.TrimSpace(c.Queue.Token)
	if c.Queue.RequestTimeout <= 0 {
		c.Queue.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeFeed() {
	c.Feed.ChannelURL = strings.TrimSpace(c.Feed.ChannelURL)
	c.Feed.Downloader = strings.TrimSpace(c.Feed.Downloader)
	if c.Feed.Downloader == "" {
		c.Feed.Downloader = defaultDownloader
	}
	c.Feed.ArchiveName = strings.TrimSpace(c.Feed.ArchiveName)
	if c.Feed.ArchiveName == "" {
		c.Feed.ArchiveName = defaultArchiveName
	}
}

func (c *Config) normalizeWhisper() error {
	c.Whisper.Binary = strings.TrimSpace(c.Whisper.Binary)
	if c.Whisper.Binary == "" {
		c.Whisper.Binary = defaultWhisperBinary
	}
	var err error
	if c.Whisper.ModelDir, err = expandPath(c.Whisper.ModelDir); err != nil {
		return fmt.Errorf("whisper.model_dir: %w", err)
	}
	c.Whisper.Model = strings.TrimSpace(c.Whisper.Model)
	if c.Whisper.Model == "" {
		c.Whisper.Model = defaultModel
	}
	if c.Whisper.Threads < 0 {
		c.Whisper.Threads = 0
	}
	c.Whisper.Language = strings.ToLower(strings.TrimSpace(c.Whisper.Language))
	if c.Whisper.Language == "" {
		c.Whisper.Language = defaultLanguage
	}
	if c.Whisper.EntropyThreshold <= 0 {
		c.Whisper.EntropyThreshold = defaultEntropyThreshold
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	c.FFmpeg.NormalizeBinary = strings.TrimSpace(c.FFmpeg.NormalizeBinary)
	if c.FFmpeg.NormalizeBinary == "" {
		c.FFmpeg.NormalizeBinary = defaultNormalizeBinary
	}
	if c.FFmpeg.SampleRate <= 0 {
		c.FFmpeg.SampleRate = defaultSampleRate
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.ItemPauseSeconds < 0 {
		c.Workflow.ItemPauseSeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
