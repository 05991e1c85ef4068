package cli

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cruciblehq/cruxmatrix/internal"
	"github.com/cruciblehq/cruxmatrix/internal/cache"
	"github.com/joho/godotenv"
)

// Loads the .env file in dir and then each extra file.
//
// Missing files are skipped. Variables already in the environment are
// never overridden, so earlier files win over later ones.
func loadEnvFiles(dir string, extra ...string) {
	files := append([]string{filepath.Join(dir, ".env")}, extra...)
	for _, file := range files {
		err := godotenv.Load(file)
		switch {
		case err == nil:
			slog.Debug("environment file loaded", "path", file)
		case errors.Is(err, fs.ErrNotExist):
		default:
			slog.Warn("ignoring environment file", "path", file, "error", err)
		}
	}
}

// Returns the value of a CRUXMATRIX_ variable.
func getenv(name string) string {
	return strings.TrimSpace(os.Getenv(internal.EnvPrefix + name))
}

// Reads the remote cache configuration from CRUXMATRIX_CACHE_S3_*.
//
// Returns false when no endpoint is configured.
func s3ConfigFromEnv() (cache.S3Config, bool, error) {
	cfg := cache.S3Config{
		Endpoint:  getenv("CACHE_S3_ENDPOINT"),
		Bucket:    getenv("CACHE_S3_BUCKET"),
		Region:    getenv("CACHE_S3_REGION"),
		AccessKey: getenv("CACHE_S3_ACCESS_KEY"),
		SecretKey: getenv("CACHE_S3_SECRET_KEY"),
		Prefix:    getenv("CACHE_S3_PREFIX"),
		UseSSL:    true,
	}
	if cfg.Endpoint == "" {
		return cache.S3Config{}, false, nil
	}
	if cfg.Bucket == "" {
		return cache.S3Config{}, false, usageError(errors.New("CRUXMATRIX_CACHE_S3_BUCKET is required with CRUXMATRIX_CACHE_S3_ENDPOINT"))
	}
	if raw := getenv("CACHE_S3_USE_SSL"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return cache.S3Config{}, false, usageError(errors.New("CRUXMATRIX_CACHE_S3_USE_SSL is not a boolean"))
		}
		cfg.UseSSL = v
	}
	return cfg, true, nil
}
