package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Notification sink identifiers.
const (
	SinkLog   = "log"
	SinkRedis = "redis"
	SinkKafka = "kafka"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Triage        TriageConfig
	Similarity    SimilarityConfig
	Priority      PriorityConfig
	Gemini        GeminiConfig
	Notifications NotificationConfig
	Workers       WorkerConfig
	Cache         CacheConfig
	Rescore       RescoreConfig
	Telemetry     TelemetryConfig

	// TaxonomyFile optionally overrides the embedded category taxonomy.
	TaxonomyFile string
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	MigrateOnBoot bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int

	// PoolSize bounds connections shared by the snapshot cache and the redis sink.
	PoolSize    int
	DialTimeout time.Duration
}

// JWTConfig holds the parameters needed to validate bearer tokens issued by
// the identity service.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TriageConfig tunes classification acceptance.
type TriageConfig struct {
	RejectionThreshold float64
	TieEpsilon         float64
	MinBodyLength      int
	MinDocumentLength  int
	MaxTitleLength     int
	ClassifyTimeout    time.Duration
}

// SimilarityConfig tunes duplicate detection.
type SimilarityConfig struct {
	Threshold  float64
	TopK       int
	Dimensions int
}

// PriorityConfig holds the scoring policy constants.
type PriorityConfig struct {
	UrgencyWeights map[string]int
	DuplicateCap   float64
	DuplicateDecay float64
	AgeStep        time.Duration
	AgeCap         int
	HighCutoff     int
	MediumCutoff   int
}

// GeminiConfig configures the LLM classifier and embedder.
type GeminiConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	MaxRetries     int
	Timeout        time.Duration
}

// NotificationConfig selects and tunes the notification sink.
type NotificationConfig struct {
	Sink         string
	StreamKey    string
	StreamMaxLen int64
	DedupeTTL    time.Duration
	KafkaBrokers []string
	KafkaTopic   string
}

// WorkerConfig sizes the post-commit worker pool.
type WorkerConfig struct {
	Concurrency int
	BufferSize  int
	MaxRetries  int
	RetryDelay  time.Duration
}

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// RescoreConfig drives periodic age escalation of pending complaints.
type RescoreConfig struct {
	Enabled  bool
	Interval time.Duration
	MinAge   time.Duration
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	Insecure     bool
	SampleRatio  float64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.TaxonomyFile = v.GetString("TAXONOMY_FILE")

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		MigrateOnBoot: v.GetBool("DB_MIGRATE_ON_BOOT"),
	}

	cfg.Redis = RedisConfig{
		Enabled:     v.GetBool("REDIS_ENABLED"),
		Host:        v.GetString("REDIS_HOST"),
		Port:        v.GetInt("REDIS_PORT"),
		Password:    v.GetString("REDIS_PASSWORD"),
		DB:          v.GetInt("REDIS_DB"),
		PoolSize:    v.GetInt("REDIS_POOL_SIZE"),
		DialTimeout: parseDuration(v.GetString("REDIS_DIAL_TIMEOUT"), 3*time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: v.GetString("JWT_AUDIENCE"),
		Leeway:   parseDuration(v.GetString("JWT_LEEWAY"), 30*time.Second),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Triage = TriageConfig{
		RejectionThreshold: v.GetFloat64("TRIAGE_REJECTION_THRESHOLD"),
		TieEpsilon:         v.GetFloat64("TRIAGE_TIE_EPSILON"),
		MinBodyLength:      v.GetInt("TRIAGE_MIN_BODY_LENGTH"),
		MinDocumentLength:  v.GetInt("TRIAGE_MIN_DOCUMENT_LENGTH"),
		MaxTitleLength:     v.GetInt("TRIAGE_MAX_TITLE_LENGTH"),
		ClassifyTimeout:    parseDuration(v.GetString("TRIAGE_CLASSIFY_TIMEOUT"), 15*time.Second),
	}

	cfg.Similarity = SimilarityConfig{
		Threshold:  v.GetFloat64("SIMILARITY_THRESHOLD"),
		TopK:       v.GetInt("SIMILARITY_TOP_K"),
		Dimensions: v.GetInt("SIMILARITY_DIMENSIONS"),
	}

	cfg.Priority = PriorityConfig{
		UrgencyWeights: map[string]int{
			"urgent": v.GetInt("PRIORITY_WEIGHT_URGENT"),
			"high":   v.GetInt("PRIORITY_WEIGHT_HIGH"),
			"medium": v.GetInt("PRIORITY_WEIGHT_MEDIUM"),
			"low":    v.GetInt("PRIORITY_WEIGHT_LOW"),
		},
		DuplicateCap:   v.GetFloat64("PRIORITY_DUPLICATE_CAP"),
		DuplicateDecay: v.GetFloat64("PRIORITY_DUPLICATE_DECAY"),
		AgeStep:        parseDuration(v.GetString("PRIORITY_AGE_STEP"), 48*time.Hour),
		AgeCap:         v.GetInt("PRIORITY_AGE_CAP"),
		HighCutoff:     v.GetInt("PRIORITY_HIGH_CUTOFF"),
		MediumCutoff:   v.GetInt("PRIORITY_MEDIUM_CUTOFF"),
	}

	cfg.Gemini = GeminiConfig{
		APIKey:         v.GetString("GEMINI_API_KEY"),
		Model:          v.GetString("GEMINI_MODEL"),
		EmbeddingModel: v.GetString("GEMINI_EMBEDDING_MODEL"),
		MaxRetries:     v.GetInt("GEMINI_MAX_RETRIES"),
		Timeout:        parseDuration(v.GetString("GEMINI_TIMEOUT"), 10*time.Second),
	}

	cfg.Notifications = NotificationConfig{
		Sink:         strings.ToLower(v.GetString("NOTIFY_SINK")),
		StreamKey:    v.GetString("NOTIFY_STREAM_KEY"),
		StreamMaxLen: v.GetInt64("NOTIFY_STREAM_MAXLEN"),
		DedupeTTL:    parseDuration(v.GetString("NOTIFY_DEDUPE_TTL"), 24*time.Hour),
		KafkaBrokers: splitAndTrim(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("KAFKA_TOPIC"),
	}

	cfg.Workers = WorkerConfig{
		Concurrency: v.GetInt("WORKER_CONCURRENCY"),
		BufferSize:  v.GetInt("WORKER_BUFFER_SIZE"),
		MaxRetries:  v.GetInt("WORKER_MAX_RETRIES"),
		RetryDelay:  parseDuration(v.GetString("WORKER_RETRY_DELAY"), time.Second),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 30*time.Second),
	}

	cfg.Rescore = RescoreConfig{
		Enabled:  v.GetBool("RESCORE_ENABLED"),
		Interval: parseDuration(v.GetString("RESCORE_INTERVAL"), time.Hour),
		MinAge:   parseDuration(v.GetString("RESCORE_MIN_AGE"), 48*time.Hour),
	}

	cfg.Telemetry = TelemetryConfig{
		Enabled:      v.GetBool("OTEL_ENABLED"),
		ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Insecure:     v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
		SampleRatio:  v.GetFloat64("OTEL_SAMPLE_RATIO"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("TAXONOMY_FILE", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "grievance")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATE_ON_BOOT", false)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 20)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")
	v.SetDefault("JWT_LEEWAY", "30s")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TRIAGE_REJECTION_THRESHOLD", 0.35)
	v.SetDefault("TRIAGE_TIE_EPSILON", 0.05)
	v.SetDefault("TRIAGE_MIN_BODY_LENGTH", 20)
	v.SetDefault("TRIAGE_MIN_DOCUMENT_LENGTH", 20)
	v.SetDefault("TRIAGE_MAX_TITLE_LENGTH", 200)
	v.SetDefault("TRIAGE_CLASSIFY_TIMEOUT", "15s")

	v.SetDefault("SIMILARITY_THRESHOLD", 0.82)
	v.SetDefault("SIMILARITY_TOP_K", 5)
	v.SetDefault("SIMILARITY_DIMENSIONS", 256)

	v.SetDefault("PRIORITY_WEIGHT_URGENT", 40)
	v.SetDefault("PRIORITY_WEIGHT_HIGH", 30)
	v.SetDefault("PRIORITY_WEIGHT_MEDIUM", 15)
	v.SetDefault("PRIORITY_WEIGHT_LOW", 5)
	v.SetDefault("PRIORITY_DUPLICATE_CAP", 20)
	v.SetDefault("PRIORITY_DUPLICATE_DECAY", 0.6)
	v.SetDefault("PRIORITY_AGE_STEP", "48h")
	v.SetDefault("PRIORITY_AGE_CAP", 10)
	v.SetDefault("PRIORITY_HIGH_CUTOFF", 80)
	v.SetDefault("PRIORITY_MEDIUM_CUTOFF", 50)

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("GEMINI_EMBEDDING_MODEL", "text-embedding-004")
	v.SetDefault("GEMINI_MAX_RETRIES", 2)
	v.SetDefault("GEMINI_TIMEOUT", "10s")

	v.SetDefault("NOTIFY_SINK", SinkLog)
	v.SetDefault("NOTIFY_STREAM_KEY", "complaints:notifications")
	v.SetDefault("NOTIFY_STREAM_MAXLEN", 10000)
	v.SetDefault("NOTIFY_DEDUPE_TTL", "24h")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_TOPIC", "complaint-notifications")

	v.SetDefault("WORKER_CONCURRENCY", 4)
	v.SetDefault("WORKER_BUFFER_SIZE", 256)
	v.SetDefault("WORKER_MAX_RETRIES", 3)
	v.SetDefault("WORKER_RETRY_DELAY", "1s")

	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_TTL", "30s")

	v.SetDefault("RESCORE_ENABLED", true)
	v.SetDefault("RESCORE_INTERVAL", "1h")
	v.SetDefault("RESCORE_MIN_AGE", "48h")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "grievance-api")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)
}

func isMissingFile(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "no such file")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
