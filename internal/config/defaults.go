package config

const (
	defaultOutputRoot        = "~/.local/share/hlsladder/output"
	defaultLogDir            = "~/.local/share/hlsladder/logs"
	defaultLedgerPath        = "~/.local/share/hlsladder/ledger.db"
	defaultEnvFile           = ".env"
	defaultVideoDir          = "videos"
	defaultVideoExtension    = ".mp4"
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultVideoCodec        = "h264_nvenc"
	defaultPreset            = "slow"
	defaultQuality           = 23
	defaultSegmentSeconds    = 10
	defaultPlaylistType      = "vod"
	defaultSegmentPattern    = "%03d.ts"
	defaultPlaylistName      = "master.m3u8"
	defaultSegmentExtension  = ".ts"
	defaultPublishBaseURL    = "http://localhost:3000/segment"
	defaultBucket            = "videos"
	defaultPublishWorkers    = 16
	defaultStorageBackend    = StorageBackendS3
	defaultStorageRegion     = "us-east-1"
	defaultStorageTimeoutSec = 60
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// DefaultRenditions returns the stock four-step ladder, lowest bandwidth first.
func DefaultRenditions() []Rendition {
	return []Rendition{
		{Name: "low", Width: 426, Height: 360, AudioBitrate: "96k", Bandwidth: 400000},
		{Name: "medium", Width: 640, Height: 480, AudioBitrate: "128k", Bandwidth: 800000},
		{Name: "high", Width: 854, Height: 720, AudioBitrate: "160k", Bandwidth: 1400000},
		{Name: "full", Width: 1920, Height: 1080, AudioBitrate: "192k", Bandwidth: 4000000},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputRoot: defaultOutputRoot,
			LogDir:     defaultLogDir,
			LedgerPath: defaultLedgerPath,
			EnvFile:    defaultEnvFile,
		},
		Source: Source{
			VideoDir:  defaultVideoDir,
			Extension: defaultVideoExtension,
		},
		Transcode: Transcode{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			VideoCodec:     defaultVideoCodec,
			Preset:         defaultPreset,
			Quality:        defaultQuality,
			SegmentSeconds: defaultSegmentSeconds,
			PlaylistType:   defaultPlaylistType,
			SegmentPattern: defaultSegmentPattern,
			PlaylistName:   defaultPlaylistName,
		},
		Renditions: DefaultRenditions(),
		Publish: Publish{
			BaseURL:          defaultPublishBaseURL,
			Bucket:           defaultBucket,
			Concurrency:      defaultPublishWorkers,
			MasterLast:       true,
			SegmentExtension: defaultSegmentExtension,
		},
		Storage: Storage{
			Backend:               defaultStorageBackend,
			Region:                defaultStorageRegion,
			UsePathStyle:          true,
			RequestTimeoutSeconds: defaultStorageTimeoutSec,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
