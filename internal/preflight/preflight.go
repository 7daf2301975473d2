package preflight

import (
	"context"

	"hlsladder/internal/config"
	"hlsladder/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional results never block a run.
	Optional bool
}

// RunAll executes the checks that apply to cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, fromStatus(status))
	}
	results = append(results, CheckDirectoryAccess("Output root", cfg.Paths.OutputRoot))

	switch cfg.Storage.Backend {
	case config.StorageBackendFilesystem:
		results = append(results, CheckDirectoryAccess("Storage mirror", cfg.Storage.FilesystemRoot))
	case config.StorageBackendS3:
		if cfg.Storage.Endpoint != "" {
			results = append(results, CheckEndpoint(ctx, "Object store", cfg.Storage.Endpoint, cfg.Storage.UseSSL))
		}
	}
	return results
}

// Failed returns the required results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

// CheckSystemDeps resolves the encoder binaries named in cfg.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Transcode.FFmpegBinary,
			Description: "Required for transcoding",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Transcode.FFprobeBinary,
			Description: "Reports source duration for progress percentages",
			Optional:    true,
		},
	})
}

func fromStatus(s deps.Status) Result {
	detail := s.Detail
	if s.Available {
		detail = s.Path
	}
	return Result{Name: s.Name, Passed: s.Available, Detail: detail, Optional: s.Optional}
}
