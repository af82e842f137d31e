package config

import (
	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/chunking"
	"github.com/timmy/lexpdf/internal/logger"
)

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperror.Configuration("server.port %d out of range", c.Server.Port)
	}
	if !logger.ValidLevel(c.Log.Level) {
		return apperror.Configuration("unknown log.level %q", c.Log.Level)
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return apperror.Configuration("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.URL == "" && c.Database.Host == "" {
			return apperror.Configuration("database.url or database.host is required for postgres")
		}
	default:
		return apperror.Configuration("unsupported database.driver %q", c.Database.Driver)
	}

	if c.PDF.MaxSizeMB <= 0 || c.PDF.MaxPages <= 0 {
		return apperror.Configuration("pdf limits must be positive")
	}

	limits := chunking.Limits{Target: c.Chunking.Size, Min: c.Chunking.Min, Max: c.Chunking.Max}
	if _, err := limits.Validate(); err != nil {
		return err
	}

	switch c.Jobs.Store {
	case "database", "memory":
	default:
		return apperror.Configuration("unsupported jobs.store %q", c.Jobs.Store)
	}
	switch c.Jobs.Queue {
	case "memory":
	case "redis":
		if c.Jobs.Redis.Addr == "" {
			return apperror.Configuration("jobs.redis.addr is required for the redis queue")
		}
	default:
		return apperror.Configuration("unsupported jobs.queue %q", c.Jobs.Queue)
	}
	if c.Jobs.Workers < 1 {
		return apperror.Configuration("jobs.workers must be at least 1")
	}

	if c.ImageAnalysis.Enabled && c.ImageAnalysis.APIKey == "" {
		return apperror.Configuration("image_analysis.enabled requires image_analysis.api_key")
	}
	if c.Indexing.Enabled {
		if c.Embedding.APIKey == "" {
			return apperror.Configuration("indexing.enabled requires embedding.api_key")
		}
		if c.Qdrant.Host == "" || c.Qdrant.Collection == "" {
			return apperror.Configuration("indexing.enabled requires qdrant.host and qdrant.collection")
		}
	}
	return nil
}

// IndexingConfigured reports whether index requests can be honoured.
func (c *Config) IndexingConfigured() bool {
	return c.Indexing.Enabled && c.Embedding.APIKey != "" && c.Qdrant.Host != ""
}

// LoggerConfig maps the log section onto the logger package.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Format = c.Log.Format
	if c.Log.File != "" {
		lc.Output = nil
		lc.File = c.Log.File
		lc.FileOnly = c.Log.FileOnly
		lc.MaxSize = c.Log.MaxSizeMB
		lc.MaxBackups = c.Log.MaxBackups
		lc.MaxAge = c.Log.MaxAgeDays
		lc.Compress = c.Log.Compress
	}
	return lc
}
