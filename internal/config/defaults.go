package config

const (
	defaultWorkDir          = "~/.local/share/scribe/work"
	defaultOutputDir        = "~/.local/share/scribe/output"
	defaultBackupDir        = "~/.local/share/scribe/backup"
	defaultLogDir           = "~/.local/share/scribe/logs"
	defaultLockFile         = "~/.local/share/scribe/scribe.pid"
	defaultStopFileName     = ".stop-requested"
	defaultRequestTimeout   = 30
	defaultDownloader       = "yt-dlp"
	defaultArchiveName      = "downloaded.txt"
	defaultWhisperBinary    = "whisper-cli"
	defaultModelDir         = "~/.local/share/scribe/models"
	defaultModel            = "medium"
	defaultThreads          = 1
	defaultLanguage         = "en"
	defaultEntropyThreshold = 3.0
	defaultFFmpegBinary     = "ffmpeg"
	defaultNormalizeBinary  = "ffmpeg-normalize"
	defaultSampleRate       = 16000
	defaultItemPauseSeconds = 2
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			BackupDir: defaultBackupDir,
			LogDir:    defaultLogDir,
			LockFile:  defaultLockFile,
		},
		Queue: Queue{
			RequestTimeout: defaultRequestTimeout,
		},
		Feed: Feed{
			Downloader:  defaultDownloader,
			ArchiveName: defaultArchiveName,
		},
		Whisper: Whisper{
			Binary:           defaultWhisperBinary,
			ModelDir:         defaultModelDir,
			Model:            defaultModel,
			Threads:          defaultThreads,
			Language:         defaultLanguage,
			EntropyThreshold: defaultEntropyThreshold,
		},
		FFmpeg: FFmpeg{
			Binary:          defaultFFmpegBinary,
			NormalizeBinary: defaultNormalizeBinary,
			SampleRate:      defaultSampleRate,
		},
		Workflow: Workflow{
			ItemPauseSeconds: defaultItemPauseSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
