package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridcore/pkg/cache"
	"github.com/matzehuels/gridcore/pkg/pipeline"
)

const (
	// appName is the application name used for directories and display.
	appName = "gridcore"

	// Environment variables read when --redis-url and --mongo-uri are unset.
	redisURLEnv = "GRIDCORE_REDIS_URL"
	mongoURIEnv = "GRIDCORE_MONGO_URI"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	verbose  bool
	noCache  bool
	redisURL string
	mongoURI string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. Debug also reports call sites.
func (c *CLI) SetLogLevel(level log.Level) {
	if level <= log.DebugLevel {
		setVerbose(c.Logger)
		return
	}
	c.Logger.SetLevel(level)
}

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context) *pipeline.Runner {
	return pipeline.NewRunner(c.newCache(ctx), nil, c.Logger)
}

// newCache picks the cache: none with --no-cache, Redis or MongoDB when
// configured and reachable (Redis first), the file cache otherwise.
func (c *CLI) newCache(ctx context.Context) cache.Cache {
	if c.noCache {
		return cache.NewNullCache()
	}
	if url := flagOrEnv(c.redisURL, redisURLEnv); url != "" {
		rc, err := cache.NewRedisCache(ctx, url)
		if err == nil {
			c.Logger.Debug("using redis cache")
			return rc
		}
		c.Logger.Warn("redis cache unavailable", "error", err)
	}
	if uri := flagOrEnv(c.mongoURI, mongoURIEnv); uri != "" {
		mc, err := cache.NewMongoCache(ctx, uri)
		if err == nil {
			c.Logger.Debug("using mongo cache")
			return mc
		}
		c.Logger.Warn("mongo cache unavailable", "error", err)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("file cache unavailable", "dir", dir, "error", err)
		return cache.NewNullCache()
	}
	return fc
}

func flagOrEnv(flag, env string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(env)
}

// cacheDir returns the cache directory (XDG_CACHE_HOME/gridcore when set).
func cacheDir() (string, error) { return cache.DefaultDir() }

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
