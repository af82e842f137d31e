// Package config loads the service configuration from YAML, .env and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is an immutable snapshot. Reload produces a new one instead of mutating it.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Storage       StorageConfig       `mapstructure:"storage"`
	PDF           PDFConfig           `mapstructure:"pdf"`
	Text          TextConfig          `mapstructure:"text"`
	Chunking      ChunkingConfig      `mapstructure:"chunking"`
	Jobs          JobsConfig          `mapstructure:"jobs"`
	Grouping      GroupingConfig      `mapstructure:"grouping"`
	ImageAnalysis ImageAnalysisConfig `mapstructure:"image_analysis"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Qdrant        QdrantConfig        `mapstructure:"qdrant"`
	Indexing      IndexingConfig      `mapstructure:"indexing"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	UploadDir       string        `mapstructure:"upload_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	FileOnly   bool   `mapstructure:"file_only"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
func (c DatabaseConfig) DSN() string {
	if c.Driver != "postgres" {
		return c.Path
	}
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	LocalDir  string `mapstructure:"local_dir"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
	PublicURL string `mapstructure:"public_url"`
}

type PDFConfig struct {
	MaxSizeMB   int           `mapstructure:"max_size_mb"`
	MaxPages    int           `mapstructure:"max_pages"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

type TextConfig struct {
	ShoutingRatio   float64  `mapstructure:"shouting_ratio"`
	RepeatThreshold int      `mapstructure:"repeat_threshold"`
	ExtraAcronyms   []string `mapstructure:"extra_acronyms"`
}

type ChunkingConfig struct {
	Size int `mapstructure:"size"`
	Min  int `mapstructure:"min"`
	Max  int `mapstructure:"max"`
}

type JobsConfig struct {
	Store           string        `mapstructure:"store"`
	Queue           string        `mapstructure:"queue"`
	Workers         int           `mapstructure:"workers"`
	QueueSize       int           `mapstructure:"queue_size"`
	Retention       time.Duration `mapstructure:"retention"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
	Redis           RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	QueueKey    string        `mapstructure:"queue_key"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

type GroupingConfig struct {
	ProcessedDir string `mapstructure:"processed_dir"`
}

type ImageAnalysisConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MinDimension   int           `mapstructure:"min_dimension"`
	MaxDimension   int           `mapstructure:"max_dimension"`
	MaxImageSizeMB int           `mapstructure:"max_image_size_mb"`
	Retry          RetryConfig   `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Multiplier     float64       `mapstructure:"multiplier"`
}

type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

type IndexingConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	BatchSize int  `mapstructure:"batch_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.upload_dir", "./data/uploads")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/lexpdf.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_dir", "./data/results")
	v.SetDefault("storage.bucket", "lexpdf")

	v.SetDefault("pdf.max_size_mb", 500)
	v.SetDefault("pdf.max_pages", 10000)
	v.SetDefault("pdf.open_timeout", 30*time.Second)

	v.SetDefault("text.shouting_ratio", 0.7)
	v.SetDefault("text.repeat_threshold", 3)

	v.SetDefault("chunking.size", 1000)
	v.SetDefault("chunking.min", 100)
	v.SetDefault("chunking.max", 10000)

	v.SetDefault("jobs.store", "database")
	v.SetDefault("jobs.queue", "memory")
	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.queue_size", 100)
	v.SetDefault("jobs.retention", 24*time.Hour)
	v.SetDefault("jobs.janitor_interval", 10*time.Minute)
	v.SetDefault("jobs.redis.addr", "localhost:6379")
	v.SetDefault("jobs.redis.queue_key", "lexpdf:jobs")
	v.SetDefault("jobs.redis.poll_timeout", 5*time.Second)

	v.SetDefault("grouping.processed_dir", "processado")

	v.SetDefault("image_analysis.enabled", false)
	v.SetDefault("image_analysis.base_url", "https://api.openai.com/v1")
	v.SetDefault("image_analysis.model", "gpt-4o-mini")
	v.SetDefault("image_analysis.max_tokens", 500)
	v.SetDefault("image_analysis.timeout", 60*time.Second)
	v.SetDefault("image_analysis.min_dimension", 32)
	v.SetDefault("image_analysis.max_dimension", 2048)
	v.SetDefault("image_analysis.max_image_size_mb", 4)
	v.SetDefault("image_analysis.retry.max_attempts", 3)
	v.SetDefault("image_analysis.retry.initial_backoff", time.Second)
	v.SetDefault("image_analysis.retry.max_backoff", 10*time.Second)
	v.SetDefault("image_analysis.retry.multiplier", 2.0)

	v.SetDefault("embedding.provider", "jina")
	v.SetDefault("embedding.base_url", "https://api.jina.ai/v1/embeddings")
	v.SetDefault("embedding.model", "jina-embeddings-v3")
	v.SetDefault("embedding.dimensions", 1024)
	v.SetDefault("embedding.timeout", 30*time.Second)

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "lexpdf_chunks")

	v.SetDefault("indexing.enabled", false)
	v.SetDefault("indexing.batch_size", 32)
}

// Load reads configPath (or ./configs/config.yaml, ./config.yaml when empty),
// then .env and the environment. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets keep their conventional names.
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY", "MINIO_ACCESS_KEY", "AWS_ACCESS_KEY_ID")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY", "MINIO_SECRET_KEY", "AWS_SECRET_ACCESS_KEY")
	v.BindEnv("jobs.redis.addr", "REDIS_ADDR")
	v.BindEnv("jobs.redis.password", "REDIS_PASSWORD")
	v.BindEnv("image_analysis.api_key", "OPENAI_API_KEY")
	v.BindEnv("image_analysis.base_url", "OPENAI_BASE_URL")
	v.BindEnv("embedding.api_key", "JINA_API_KEY")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
