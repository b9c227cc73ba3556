package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	OCR        OCRConfig        `yaml:"ocr"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Routing    RoutingConfig    `yaml:"routing"`
	Export     ExportConfig     `yaml:"export"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Queue      QueueConfig      `yaml:"queue"`
	Watch      WatchConfig      `yaml:"watch"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig holds record store configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // sqlite | postgres
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds daemon listener configuration
type ServerConfig struct {
	GRPCAddr    string  `yaml:"grpc_addr"`
	HTTPAddr    string  `yaml:"http_addr"`
	RateLimit   float64 `yaml:"rate_limit"` // requests per second per client
	RateBurst   int     `yaml:"rate_burst"`
	MaxUploadMB int     `yaml:"max_upload_mb"`
}

// OCRConfig holds text extraction configuration
type OCRConfig struct {
	Pdftotext           string `yaml:"pdftotext"`
	Pdftoppm            string `yaml:"pdftoppm"`
	Tesseract           string `yaml:"tesseract"`
	Lang                string `yaml:"lang"`
	DPI                 int    `yaml:"dpi"`
	PSM                 int    `yaml:"psm"`
	OEM                 int    `yaml:"oem"`
	MaxPages            int    `yaml:"max_pages"`
	TessdataDir         string `yaml:"tessdata_dir"`
	EnableTSVConfidence bool   `yaml:"enable_tsv_confidence"`
	DisableTextLayer    bool   `yaml:"disable_text_layer"`
	DisablePreprocess   bool   `yaml:"disable_preprocess"`
	ArtifactCacheDir    string `yaml:"artifact_cache_dir"`
}

// ClassifierConfig holds vendor classifier configuration
type ClassifierConfig struct {
	ModelPath        string  `yaml:"model_path"`
	FallbackBelow    float64 `yaml:"fallback_below"`
	FuzzyLines       int     `yaml:"fuzzy_lines"`
	SamplesPerVendor int     `yaml:"samples_per_vendor"`
	Seed             int64   `yaml:"seed"`
}

// RoutingConfig holds the confidence policy and routing thresholds
type RoutingConfig struct {
	HighThreshold  float64 `yaml:"high_threshold"`
	MidThreshold   float64 `yaml:"mid_threshold"`
	VendorWeight   float64 `yaml:"vendor_weight"`
	FieldWeight    float64 `yaml:"field_weight"`
	WarningPenalty float64 `yaml:"warning_penalty"`
	Tolerance      float64 `yaml:"tolerance"`
	MinTextLength  int     `yaml:"min_text_length"`
	FutureDateDays int     `yaml:"future_date_days"`
}

// ExportConfig holds export configuration
type ExportConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"` // csv | json | xlsx
}

// ArchiveConfig holds the optional MinIO source-document archive
type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether an archive endpoint is configured.
func (a ArchiveConfig) Enabled() bool { return strings.TrimSpace(a.Endpoint) != "" }

// QueueConfig holds background processing configuration
type QueueConfig struct {
	Workers        int           `yaml:"workers"`
	Size           int           `yaml:"size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

// WatchConfig holds folder watcher configuration
type WatchConfig struct {
	Dirs        []string      `yaml:"dirs"`
	Debounce    time.Duration `yaml:"debounce"`
	InitialScan bool          `yaml:"initial_scan"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Dir    string `yaml:"dir"`    // empty disables the log file
}

// LoadConfig reads the YAML file at path (or the first default location found),
// merges environment variables over it and fills in defaults.
func LoadConfig(path string) (*Config, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/invoice-processor/config.yaml"),
		}
		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("reading config file %q", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("parsing config file %q", path), err)
		}
	}

	mergeWithEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func mergeWithEnv(c *Config) {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.RateLimit = getEnvAsFloat64("HTTP_RATE_LIMIT", c.Server.RateLimit)

	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.Lang = getEnv("OCR_LANG", c.OCR.Lang)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.ArtifactCacheDir = getEnv("ARTIFACT_CACHE_DIR", c.OCR.ArtifactCacheDir)

	c.Classifier.ModelPath = getEnv("MODEL_PATH", c.Classifier.ModelPath)

	c.Routing.HighThreshold = getEnvAsFloat64("ROUTING_HIGH_THRESHOLD", c.Routing.HighThreshold)
	c.Routing.MidThreshold = getEnvAsFloat64("ROUTING_MID_THRESHOLD", c.Routing.MidThreshold)

	c.Export.Dir = getEnv("EXPORT_DIR", c.Export.Dir)

	c.Archive.Endpoint = getEnv("MINIO_ENDPOINT", c.Archive.Endpoint)
	c.Archive.AccessKey = getEnv("MINIO_ACCESS_KEY", c.Archive.AccessKey)
	c.Archive.SecretKey = getEnv("MINIO_SECRET_KEY", c.Archive.SecretKey)
	c.Archive.Bucket = getEnv("MINIO_BUCKET", c.Archive.Bucket)
	c.Archive.UseSSL = getEnvAsBool("MINIO_USE_SSL", c.Archive.UseSSL)

	c.Queue.Workers = getEnvAsInt("QUEUE_WORKERS", c.Queue.Workers)

	if dirs := os.Getenv("WATCH_DIRS"); dirs != "" {
		c.Watch.Dirs = strings.Split(dirs, string(os.PathListSeparator))
	}

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Log.Dir = getEnv("LOG_DIR", c.Log.Dir)
}

func applyDefaults(c *Config) {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "file:invoices.db?_pragma=busy_timeout(5000)"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = 1
	}
	if c.Database.MaxConnLifetime == 0 {
		c.Database.MaxConnLifetime = 30 * time.Minute
	}
	if c.Database.MaxConnIdleTime == 0 {
		c.Database.MaxConnIdleTime = 5 * time.Minute
	}
	if c.Database.DialTimeout == 0 {
		c.Database.DialTimeout = 3 * time.Second
	}

	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":8080"
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8081"
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 5
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = 10
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 20
	}

	if c.OCR.Lang == "" {
		c.OCR.Lang = "eng"
	}
	if c.OCR.DPI == 0 {
		c.OCR.DPI = 300
	}
	if c.OCR.PSM == 0 {
		c.OCR.PSM = 6
	}
	if c.OCR.OEM == 0 {
		c.OCR.OEM = 3
	}
	if c.OCR.ArtifactCacheDir == "" {
		c.OCR.ArtifactCacheDir = "./tmp"
	}

	if c.Classifier.ModelPath == "" {
		c.Classifier.ModelPath = "models/vendor_classifier.json"
	}
	if c.Classifier.FallbackBelow == 0 {
		c.Classifier.FallbackBelow = 0.5
	}
	if c.Classifier.FuzzyLines == 0 {
		c.Classifier.FuzzyLines = 5
	}
	if c.Classifier.SamplesPerVendor == 0 {
		c.Classifier.SamplesPerVendor = 10
	}
	if c.Classifier.Seed == 0 {
		c.Classifier.Seed = 42
	}

	if c.Routing.HighThreshold == 0 {
		c.Routing.HighThreshold = 0.8
	}
	if c.Routing.MidThreshold == 0 {
		c.Routing.MidThreshold = 0.6
	}
	if c.Routing.VendorWeight == 0 && c.Routing.FieldWeight == 0 {
		c.Routing.VendorWeight = 0.4
		c.Routing.FieldWeight = 0.6
	}
	if c.Routing.WarningPenalty == 0 {
		c.Routing.WarningPenalty = 0.05
	}
	if c.Routing.Tolerance == 0 {
		c.Routing.Tolerance = 0.02
	}
	if c.Routing.MinTextLength == 0 {
		c.Routing.MinTextLength = 50
	}
	if c.Routing.FutureDateDays == 0 {
		c.Routing.FutureDateDays = 30
	}

	if c.Export.Dir == "" {
		c.Export.Dir = "./exports"
	}
	if c.Export.Format == "" {
		c.Export.Format = "csv"
	}

	if c.Archive.Bucket == "" {
		c.Archive.Bucket = "invoices"
	}

	if c.Queue.Workers == 0 {
		c.Queue.Workers = 1
	}
	if c.Queue.Size == 0 {
		c.Queue.Size = 64
	}
	if c.Queue.ProcessTimeout == 0 {
		c.Queue.ProcessTimeout = 3 * time.Minute
	}

	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 2 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("database.driver", c.Database.Driver, Required, OneOf("sqlite", "postgres"))
	v.Field("database.dsn", c.Database.DSN, Required)
	v.Field("routing.high_threshold", c.Routing.HighThreshold, Between(0, 1))
	v.Field("routing.mid_threshold", c.Routing.MidThreshold, Between(0, 1))
	v.Field("routing.vendor_weight", c.Routing.VendorWeight, Between(0, 1))
	v.Field("routing.field_weight", c.Routing.FieldWeight, Between(0, 1))
	v.Field("classifier.fallback_below", c.Classifier.FallbackBelow, Between(0, 1))
	v.Field("export.format", c.Export.Format, OneOf("csv", "json", "xlsx"))
	v.Field("queue.workers", c.Queue.Workers, Positive)
	v.Field("log.format", c.Log.Format, OneOf("text", "json"))
	v.Check(c.Routing.MidThreshold <= c.Routing.HighThreshold,
		"routing.mid_threshold", "must not exceed routing.high_threshold")
	v.Check(c.Routing.VendorWeight+c.Routing.FieldWeight <= 1.000001,
		"routing weights", fmt.Sprintf("sum to %.2f, must be at most 1", c.Routing.VendorWeight+c.Routing.FieldWeight))
	// a missing required field removes at most two consistency checks, so one
	// missing field must always cost more than the warnings it suppresses
	v.Check(c.Routing.WarningPenalty >= 0 && c.Routing.WarningPenalty < c.Routing.FieldWeight/6,
		"routing.warning_penalty", "must be in [0, field_weight/6)")
	v.Check(!c.Archive.Enabled() || (c.Archive.AccessKey != "" && c.Archive.SecretKey != ""),
		"archive", "credentials are required when an endpoint is set")
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
