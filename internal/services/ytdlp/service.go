package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Entry is one media item enumerated from a content channel.
type Entry struct {
	ID              string
	URL             string
	Title           string
	DurationSeconds float64
}

// Service wraps the external feed downloader (yt-dlp compatible). Channel
// pagination and extraction internals belong to the tool; scribe only sees
// entries keyed by opaque id.
type Service struct {
	binary        string
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewService creates a downloader service for the given binary.
func NewService(binary string) *Service {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Service{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.commandRunner = runner
}

// Binary returns the downloader executable name for health checks.
func (s *Service) Binary() string { return s.binary }

// listFormat prints one tab-separated line per channel entry.
const listFormat = "%(id)s\t%(webpage_url)s\t%(duration)s\t%(title)s"

// ListChannel enumerates the channel without downloading anything.
func (s *Service) ListChannel(ctx context.Context, channelURL string) ([]Entry, error) {
	if strings.TrimSpace(channelURL) == "" {
		return nil, fmt.Errorf("list channel: url required")
	}
	output, err := s.run(ctx, s.binary,
		"--flat-playlist",
		"--skip-download",
		"--print", listFormat,
		channelURL,
	)
	if err != nil {
		return nil, fmt.Errorf("list channel: %w", err)
	}
	return parseEntries(output)
}

// DownloadAudio fetches one entry's audio as WAV into destDir, returning the
// resulting file path.
func (s *Service) DownloadAudio(ctx context.Context, entry Entry, destDir string) (string, error) {
	if entry.ID == "" || entry.URL == "" {
		return "", fmt.Errorf("download audio: entry id and url required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("download audio: ensure dest dir: %w", err)
	}
	_, err := s.run(ctx, s.binary,
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", "wav",
		"--concurrent-fragments", "3",
		"--no-progress",
		"-o", filepath.Join(destDir, "%(id)s.%(ext)s"),
		entry.URL,
	)
	if err != nil {
		return "", fmt.Errorf("download audio: %w", err)
	}
	return filepath.Join(destDir, entry.ID+".wav"), nil
}

func parseEntries(output []byte) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 4)
		if len(fields) < 2 || strings.TrimSpace(fields[0]) == "" {
			continue
		}
		entry := Entry{
			ID:  strings.TrimSpace(fields[0]),
			URL: strings.TrimSpace(fields[1]),
		}
		if len(fields) > 2 {
			if seconds, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64); err == nil {
				entry.DurationSeconds = seconds
			}
		}
		if len(fields) > 3 {
			entry.Title = strings.TrimSpace(fields[3])
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse channel listing: %w", err)
	}
	return entries, nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}
