package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"hlsladder/internal/config"
	"hlsladder/internal/ledger"
	"hlsladder/internal/logging"
	"hlsladder/internal/services"
)

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(strings.TrimSpace(c.flags.configPath))
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		if level := strings.TrimSpace(c.flags.logLevel); level != "" {
			cfg.Logging.Level = level
		}
		if format := strings.TrimSpace(c.flags.logFormat); format != "" {
			cfg.Logging.Format = format
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrFilesystem, "prepare", "ensure directories", "", err)
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

// logger builds the command logger. Console output goes to the command's
// stderr so stdout stays clean for manifests and tables.
func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts := logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Console: cmd.ErrOrStderr(),
	}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		opts.FilePath = filepath.Join(dir, logging.LogFileName)
	}
	return logging.New(opts)
}

func (c *commandContext) openLedger() (*ledger.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := ledger.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return store, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

type lessonFlags struct {
	course string
	lesson string
}

func (f *lessonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.course, "course", "", "Course identifier")
	cmd.Flags().StringVar(&f.lesson, "lesson", "", "Lesson identifier")
	_ = cmd.MarkFlagRequired("course")
	_ = cmd.MarkFlagRequired("lesson")
}
