package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"linkvault/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration.
type Config struct {
	// DatabasePath is the full path to the SQLite database file.
	DatabasePath string
	// MetricsAddr is the listen address for the Prometheus endpoint.
	// Empty disables metrics.
	MetricsAddr string
	// MetricsEnabled reports whether a metrics listener should be started.
	MetricsEnabled bool
}

// LoadConfig loads and validates configuration from environment variables.
func LoadConfig() (*Config, error) {
	dbPath := getEnv("LINKVAULT_DB", "linkvault.db")
	metricsAddr := strings.TrimSpace(os.Getenv("METRICS_ADDR"))

	dbPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	logging.Debug("Configuration: LINKVAULT_DB=%s METRICS_ADDR=%q LOG_LEVEL=%v",
		dbPath, metricsAddr, logging.GetLevel())

	// The database directory must exist and be writable; the engine cannot
	// run without its schema.
	dir := filepath.Dir(dbPath)
	if err := ensureDirectory(dir); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	if err := testWriteAccess(dir); err != nil {
		return nil, fmt.Errorf("database directory is not writable: %w", err)
	}

	return &Config{
		DatabasePath:   dbPath,
		MetricsAddr:    metricsAddr,
		MetricsEnabled: metricsAddr != "",
	}, nil
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ensureDirectory checks that path exists and is a directory, creating it
// when absent.
func ensureDirectory(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(path, 0o755); mkErr != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, mkErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists but is not a directory", path)
	}
	return nil
}

// testWriteAccess verifies the directory accepts writes.
func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return err
	}
	return os.Remove(testFile)
}
