package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultPort      = 8080
	DefaultUploadDir = "./uploads"
)

// Config is fixed at startup and never mutated afterwards. Every handler
// resolves paths against these two directories and nothing else.
type Config struct {
	Root      string // directory exposed for download
	UploadDir string // directory uploaded files are written to
	Port      int
	LogFile   string
	TUI       bool
}

// FromEnv fills a Config from the process environment. main loads .env
// first, so a dropped-in .env file works as a config file. Flags override
// these values.
func FromEnv() *Config {
	cfg := &Config{
		Root:      envOr("ARMORY_DIR", "."),
		UploadDir: envOr("ARMORY_UPLOAD_DIR", DefaultUploadDir),
		Port:      DefaultPort,
		LogFile:   os.Getenv("ARMORY_LOG_FILE"),
	}

	if p, err := strconv.Atoi(os.Getenv("ARMORY_PORT")); err == nil {
		cfg.Port = p
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// normalize resolves both directories to absolute paths, verifies the
// served root, and creates the upload directory. Called once by New.
func (c *Config) normalize() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}

	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("resolving served root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("served root %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("served root %s is not a directory", root)
	}
	c.Root = root

	uploadDir, err := filepath.Abs(c.UploadDir)
	if err != nil {
		return fmt.Errorf("resolving upload directory: %w", err)
	}
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return fmt.Errorf("creating upload directory %s: %w", uploadDir, err)
	}
	c.UploadDir = uploadDir

	return nil
}
