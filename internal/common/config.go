package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/leadforge/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment     string             `toml:"environment"`       // "development" or "production" - controls test URL validation
	DeleteOnStartup []string           `toml:"delete_on_startup"` // Delete data categories on startup. Valid values: jobs, queue, models (default: empty = delete nothing)
	Server          ServerConfig       `toml:"server"`
	Queue           QueueConfig        `toml:"queue"`
	Storage         StorageConfig      `toml:"storage"`
	ObjectStore     ObjectStoreConfig  `toml:"object_store"`
	Pipeline        PipelineConfig     `toml:"pipeline"`
	Learning        LearningConfig     `toml:"learning"`
	Scheduler       SchedulerConfig    `toml:"scheduler"`
	Logging         LoggingConfig      `toml:"logging"`
	Docs            DocsConfig         `toml:"docs"` // Documentation directory configuration (./docs/*.md)
	Variables       KeysDirConfig      `toml:"variables"`  // Variables directory configuration (./keys/*.toml) for key/value pairs
	Connectors      ConnectorDirConfig `toml:"connectors"` // Reserved for future model-source connector configuration (./connectors/*.toml)
	Workers         WorkersConfig      `toml:"workers"`
}

// ServerConfig holds a host/port pair that env vars and flag overrides can
// set. The pipeline has no HTTP ingress and nothing in this module starts a
// listener on this address.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type QueueConfig struct {
	PollInterval      string  `toml:"poll_interval"`      // e.g., "1s" - how often workers poll for work items
	Concurrency       int     `toml:"concurrency"`        // Total number of pool workers; each receives from every listed queue
	VisibilityTimeout string  `toml:"visibility_timeout"` // e.g., "5m" - leased item visibility timeout before redelivery
	MaxReceive        int     `toml:"max_receive"`        // Max times a work item can be leased before dead-letter
	QueueNamePrefix   string  `toml:"queue_name_prefix"`  // Prefix applied to named queues in Badger (pdf, ml, analysis, notifications, priority)
	MaxEnqueuePerSec  float64 `toml:"max_enqueue_per_sec"` // Sustained Enqueue rate before callers block; 0 disables the limiter
	EnqueueBurst      int     `toml:"enqueue_burst"`       // Token bucket burst size for the enqueue limiter
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// ObjectStoreConfig selects and configures the backend that holds uploaded
// PDFs, extracted page images, and serialized model artifacts.
type ObjectStoreConfig struct {
	Backend string         `toml:"backend"` // "local" or "s3"
	Local   LocalStoreConfig `toml:"local"`
	S3      S3StoreConfig  `toml:"s3"`
}

type LocalStoreConfig struct {
	Dir string `toml:"dir"` // Root directory for object storage when Backend == "local"
}

type S3StoreConfig struct {
	Bucket         string `toml:"bucket"`
	Region         string `toml:"region"`
	Endpoint       string `toml:"endpoint"`        // Optional custom endpoint (e.g., MinIO)
	Prefix         string `toml:"prefix"`          // Key prefix applied to all objects
	ForcePathStyle bool   `toml:"force_path_style"` // Required for most S3-compatible services
	PresignExpiry  string `toml:"presign_expiry"`  // Duration string for presigned GET URLs (default: "15m")
}

// PipelineConfig controls document decomposition and ingestion limits.
type PipelineConfig struct {
	MaxUploadSizeBytes int64 `toml:"max_upload_size_bytes"` // Hard cap on accepted PDF size (default: 500MB)
	ChunkSizePages     int   `toml:"chunk_size_pages"`      // Pages per chunk window
	OverlapPages       int   `toml:"overlap_pages"`         // Overlap between consecutive chunk windows
	ExtractionWorkers  int   `toml:"extraction_workers"`    // Bounded worker pool size for chunk text extraction
	HeartbeatInterval  string `toml:"heartbeat_interval"`   // How often an in-flight job refreshes its heartbeat
	StaleJobThreshold  string `toml:"stale_job_threshold"`  // Heartbeat age after which a processing job is considered stalled
}

// LearningConfig controls the feedback/retraining loop described in
// the scoring model's continuous-learning schedule.
type LearningConfig struct {
	FeedbackBatchMinPending int     `toml:"feedback_batch_min_pending"`     // Minimum pending feedback records before a retraining batch runs (default: 20)
	UncertaintyConfidenceThreshold float64 `toml:"uncertainty_confidence_threshold"` // Predictions with confidence below this are swept for review (default: 0.3)
	UncertaintyDisagreementThreshold float64 `toml:"uncertainty_disagreement_threshold"` // Predictions with ensemble-member score spread above this fraction of the 0-100 scale are swept for review (default: 0.2)
	RandomForestWeight      float64 `toml:"random_forest_weight"`       // Ensemble weight for the random forest member (default: 0.6)
	GradientBoostingWeight  float64 `toml:"gradient_boosting_weight"`   // Ensemble weight for the gradient boosting member (default: 0.4)
	RetrainMinNewSamples    int     `toml:"retrain_min_new_samples"`    // Minimum new labeled samples since last training to trigger auto-retrain (default: 50)
	RetrainPerformanceFloor float64 `toml:"retrain_performance_floor"`  // Auto-retrain if estimated current performance drops below this (default: 0.85)
	RetrainMaxAgeDays       int     `toml:"retrain_max_age_days"`       // Auto-retrain if a model hasn't been retrained in this many days (default: 30)
}

// SchedulerConfig holds the three cron schedules the learning loop and
// stale-job reaper register at startup.
type SchedulerConfig struct {
	UncertaintySweepSchedule string `toml:"uncertainty_sweep_schedule"` // Cron schedule for the uncertainty review sweep
	FeedbackBatchSchedule    string `toml:"feedback_batch_schedule"`    // Cron schedule for the feedback retraining batch
	StaleJobReaperSchedule   string `toml:"stale_job_reaper_schedule"`  // Cron schedule for requeueing stalled jobs
}

type LoggingConfig struct {
	Level         string   `toml:"level"`           // "debug", "info", "warn", "error"
	Format        string   `toml:"format"`          // "json" or "text"
	Output        []string `toml:"output"`          // "stdout", "file"
	TimeFormat    string   `toml:"time_format"`     // Time format for logs (default: "15:04:05.000")
	MinEventLevel string   `toml:"min_event_level"` // Minimum log level to publish as events ("debug", "info", "warn", "error")
}

// DocsConfig contains configuration for documentation reference files
type DocsConfig struct {
	Dir        string   `toml:"dir"`        // Directory containing documentation files (default: "./docs")
	Extensions []string `toml:"extensions"` // File extensions to scan (default: [".md"])
}

// KeysDirConfig contains configuration for key/value file loading (generic secrets/configuration)
type KeysDirConfig struct {
	Dir string `toml:"dir"` // Directory containing variable files (TOML)
}

// ConnectorDirConfig contains configuration for connector file loading
type ConnectorDirConfig struct {
	Dir string `toml:"dir"` // Directory containing connector files (TOML)
}

// WorkersConfig contains configuration for worker behavior
type WorkersConfig struct {
	Debug bool `toml:"debug"` // Enable worker debug metadata (timing, queue lease diagnostics)
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in leadforge.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development", // Default to development mode - allows test URLs
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Queue: QueueConfig{
			PollInterval:    "1s",
			Concurrency:     8,
			VisibilityTimeout: "5m",
			MaxReceive:      3,
			QueueNamePrefix: "leadforge",
			MaxEnqueuePerSec: 50,
			EnqueueBurst:     100,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		ObjectStore: ObjectStoreConfig{
			Backend: "local",
			Local: LocalStoreConfig{
				Dir: "./data/objects",
			},
			S3: S3StoreConfig{
				PresignExpiry: "15m",
			},
		},
		Pipeline: PipelineConfig{
			MaxUploadSizeBytes: 500 * 1024 * 1024, // 500MB
			ChunkSizePages:     20,
			OverlapPages:       2,
			ExtractionWorkers:  4,
			HeartbeatInterval:  "30s",
			StaleJobThreshold:  "5m",
		},
		Learning: LearningConfig{
			FeedbackBatchMinPending:           20,
			UncertaintyConfidenceThreshold:    0.3,
			UncertaintyDisagreementThreshold:  0.2,
			RandomForestWeight:                0.6,
			GradientBoostingWeight:            0.4,
			RetrainMinNewSamples:              50,
			RetrainPerformanceFloor:           0.85,
			RetrainMaxAgeDays:                 30,
		},
		Scheduler: SchedulerConfig{
			UncertaintySweepSchedule: "0 */4 * * *",  // every 4 hours
			FeedbackBatchSchedule:    "0 2 * * *",     // daily at 02:00
			StaleJobReaperSchedule:   "*/10 * * * *", // every 10 minutes
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "text",
			Output:        []string{"stdout", "file"},
			MinEventLevel: "info",
		},
		Docs: DocsConfig{
			Dir:        "./docs",
			Extensions: []string{".md"},
		},
		Variables: KeysDirConfig{
			Dir: "./",
		},
		Connectors: ConnectorDirConfig{
			Dir: "./",
		},
		Workers: WorkersConfig{
			Debug: false,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// Priority system: CLI flags > Environment variables > Config file > Defaults
// kvStorage can be nil for backward compatibility (replacement will be skipped)
func LoadFromFile(kvStorage interfaces.KeyValueStorage, path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles(kvStorage)
	}
	return LoadFromFiles(kvStorage, path)
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env -> CLI
// Later files override earlier files. Priority system: CLI flags > Environment variables > Last config file > ... > First config file > Defaults
// Example: LoadFromFiles(kvStorage, "base.toml", "override.toml") - override.toml settings take precedence over base.toml
// kvStorage can be nil for backward compatibility (replacement will be skipped)
func LoadFromFiles(kvStorage interfaces.KeyValueStorage, paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Perform {key-name} replacement if KV storage is available
	if kvStorage != nil {
		ctx := context.Background()
		kvMap, err := kvStorage.GetAll(ctx)
		if err != nil {
			// Log warning and skip replacement (graceful degradation)
			logger := arbor.NewLogger()
			logger.Warn().Err(err).Msg("Failed to fetch KV map for config replacement, skipping replacement")
		} else {
			// Replace in config struct
			logger := arbor.NewLogger()
			if err := ReplaceInStruct(config, kvMap, logger); err != nil {
				logger.Warn().Err(err).Msg("Failed to replace key references in config")
			} else {
				logger.Info().Int("keys", len(kvMap)).Msg("Applied key/value replacements to config")
			}
		}
	}

	// Apply environment variables (overrides all file configs and replacements)
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: LEADFORGE_ENV, fallback: GO_ENV)
	if env := os.Getenv("LEADFORGE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("LEADFORGE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("LEADFORGE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Queue configuration
	if pollInterval := os.Getenv("LEADFORGE_QUEUE_POLL_INTERVAL"); pollInterval != "" {
		config.Queue.PollInterval = pollInterval
	}
	if concurrency := os.Getenv("LEADFORGE_QUEUE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = c
		}
	}
	if visibilityTimeout := os.Getenv("LEADFORGE_QUEUE_VISIBILITY_TIMEOUT"); visibilityTimeout != "" {
		config.Queue.VisibilityTimeout = visibilityTimeout
	}
	if maxReceive := os.Getenv("LEADFORGE_QUEUE_MAX_RECEIVE"); maxReceive != "" {
		if mr, err := strconv.Atoi(maxReceive); err == nil {
			config.Queue.MaxReceive = mr
		}
	}
	if prefix := os.Getenv("LEADFORGE_QUEUE_NAME_PREFIX"); prefix != "" {
		config.Queue.QueueNamePrefix = prefix
	}
	if maxRate := os.Getenv("LEADFORGE_QUEUE_MAX_ENQUEUE_PER_SEC"); maxRate != "" {
		if r, err := strconv.ParseFloat(maxRate, 64); err == nil {
			config.Queue.MaxEnqueuePerSec = r
		}
	}
	if burst := os.Getenv("LEADFORGE_QUEUE_ENQUEUE_BURST"); burst != "" {
		if b, err := strconv.Atoi(burst); err == nil {
			config.Queue.EnqueueBurst = b
		}
	}

	// Storage configuration
	if badgerPath := os.Getenv("LEADFORGE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Object store configuration
	if backend := os.Getenv("LEADFORGE_OBJECT_STORE_BACKEND"); backend != "" {
		config.ObjectStore.Backend = backend
	}
	if dir := os.Getenv("LEADFORGE_OBJECT_STORE_LOCAL_DIR"); dir != "" {
		config.ObjectStore.Local.Dir = dir
	}
	if bucket := os.Getenv("LEADFORGE_OBJECT_STORE_S3_BUCKET"); bucket != "" {
		config.ObjectStore.S3.Bucket = bucket
	}
	if region := os.Getenv("LEADFORGE_OBJECT_STORE_S3_REGION"); region != "" {
		config.ObjectStore.S3.Region = region
	}
	if endpoint := os.Getenv("LEADFORGE_OBJECT_STORE_S3_ENDPOINT"); endpoint != "" {
		config.ObjectStore.S3.Endpoint = endpoint
	}

	// Pipeline configuration
	if maxUpload := os.Getenv("LEADFORGE_PIPELINE_MAX_UPLOAD_SIZE_BYTES"); maxUpload != "" {
		if mu, err := strconv.ParseInt(maxUpload, 10, 64); err == nil {
			config.Pipeline.MaxUploadSizeBytes = mu
		}
	}
	if chunkSize := os.Getenv("LEADFORGE_PIPELINE_CHUNK_SIZE_PAGES"); chunkSize != "" {
		if cs, err := strconv.Atoi(chunkSize); err == nil {
			config.Pipeline.ChunkSizePages = cs
		}
	}
	if overlap := os.Getenv("LEADFORGE_PIPELINE_OVERLAP_PAGES"); overlap != "" {
		if ov, err := strconv.Atoi(overlap); err == nil {
			config.Pipeline.OverlapPages = ov
		}
	}
	if workers := os.Getenv("LEADFORGE_PIPELINE_EXTRACTION_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			config.Pipeline.ExtractionWorkers = w
		}
	}

	// Learning configuration
	if minPending := os.Getenv("LEADFORGE_LEARNING_FEEDBACK_BATCH_MIN_PENDING"); minPending != "" {
		if mp, err := strconv.Atoi(minPending); err == nil {
			config.Learning.FeedbackBatchMinPending = mp
		}
	}

	// Logging configuration
	if level := os.Getenv("LEADFORGE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("LEADFORGE_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("LEADFORGE_LOG_OUTPUT"); output != "" {
		// Split comma-separated output types
		outputs := []string{}
		for _, o := range splitString(output, ",") {
			trimmed := trimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
	if minEventLevel := os.Getenv("LEADFORGE_LOG_MIN_EVENT_LEVEL"); minEventLevel != "" {
		config.Logging.MinEventLevel = minEventLevel
	}

	// Workers configuration
	if debug := os.Getenv("LEADFORGE_WORKERS_DEBUG"); debug != "" {
		if d, err := strconv.ParseBool(debug); err == nil {
			config.Workers.Debug = d
		}
	}

	// Variables configuration
	if variablesDir := os.Getenv("LEADFORGE_VARIABLES_DIR"); variablesDir != "" {
		config.Variables.Dir = variablesDir
	}

	// Connectors configuration
	if connectorsDir := os.Getenv("LEADFORGE_CONNECTORS_DIR"); connectorsDir != "" {
		config.Connectors.Dir = connectorsDir
	}

	// Docs configuration
	if docsDir := os.Getenv("LEADFORGE_DOCS_DIR"); docsDir != "" {
		config.Docs.Dir = docsDir
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Helper functions for string manipulation
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

// ValidateJobSchedule validates a cron schedule expression and ensures minimum 5-minute interval
func ValidateJobSchedule(schedule string) error {
	// Parse the cron expression
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	// Check for minimum 5-minute interval
	// Validate minute field (first field in standard cron)
	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]

	// Check for patterns that violate 5-minute minimum
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}

	// Check for */n patterns where n < 5
	if strings.HasPrefix(minuteField, "*/") {
		intervalStr := strings.TrimPrefix(minuteField, "*/")
		interval, err := strconv.Atoi(intervalStr)
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// AllowTestURLs returns true if test URLs (localhost, 127.0.0.1, etc.) are allowed
// Test URLs are only allowed in development mode
func (c *Config) AllowTestURLs() bool {
	return !c.IsProduction()
}

// DeepCloneConfig creates a deep copy of the Config struct
// This is used by ConfigService to prevent mutations of the original config
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}

	// Clone the config struct (shallow copy first)
	clone := *c

	// Deep clone slice fields to prevent shared memory
	if len(c.DeleteOnStartup) > 0 {
		clone.DeleteOnStartup = make([]string, len(c.DeleteOnStartup))
		copy(clone.DeleteOnStartup, c.DeleteOnStartup)
	}

	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = make([]string, len(c.Logging.Output))
		copy(clone.Logging.Output, c.Logging.Output)
	}

	if len(c.Docs.Extensions) > 0 {
		clone.Docs.Extensions = make([]string, len(c.Docs.Extensions))
		copy(clone.Docs.Extensions, c.Docs.Extensions)
	}

	return &clone
}
