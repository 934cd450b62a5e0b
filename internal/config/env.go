package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `validate:"required"`
	DatabaseURL string `validate:"required"`
	SslCertPath string

	AwsAccessKey     string
	AwsSecretKey     string
	AwsRegion        string
	BucketName       string
	S3Endpoint       string
	S3ArchiveEnabled bool

	MaxUploadBytes int64 `validate:"gt=0"`
	OCREnabled     bool
	FormatsFile    string

	ChunkTargetTokens  int    `validate:"gt=0"`
	ChunkOverlapTokens int    `validate:"gte=0,ltfield=ChunkTargetTokens"`
	SentenceSplitter   string `validate:"oneof=uax29 regexp"`
	TokenCounter       string `validate:"oneof=words tiktoken"`
	TiktokenEncoding   string

	EmbedProvider    string `validate:"oneof=gemini hash"`
	AIAPIKey         string `validate:"required_if=EmbedProvider gemini"`
	EmbedModel       string
	EmbedDim         int     `validate:"gt=0"`
	EmbedBatchSize   int     `validate:"gt=0"`
	EmbedConcurrency int     `validate:"gt=0"`
	EmbedRPS         float64 `validate:"gte=0"`

	CacheBackend   string `validate:"oneof=sqlite memory none"`
	CachePath      string `validate:"required_if=CacheBackend sqlite"`
	CacheMaxBytes  int64  `validate:"gte=0"`
	EmbedCacheTTL  time.Duration
	ResultCacheTTL time.Duration

	PipelineVersion string `validate:"required"`
	DomainTag       string

	IngestWorkers int `validate:"gt=0"`
	IngestQueue   int `validate:"gt=0"`
	IngestTimeout time.Duration

	JWTSecret   string
	APIKeyHash  string
	CORSOrigins []string

	InboxDir string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SslCertPath: getEnv("SSL_CERT_PATH", ""),

		AwsAccessKey:     getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:     getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:        getEnv("AWS_REGION", "us-east-2"),
		BucketName:       getEnv("BUCKET_NAME", "docingest-raw"),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		S3ArchiveEnabled: getEnvBool("S3_ARCHIVE_ENABLED", false),

		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),
		OCREnabled:     getEnvBool("OCR_ENABLED", false),
		FormatsFile:    getEnv("FORMATS_FILE", ""),

		ChunkTargetTokens:  getEnvInt("CHUNK_TARGET_TOKENS", 1000),
		ChunkOverlapTokens: getEnvInt("CHUNK_OVERLAP_TOKENS", 200),
		SentenceSplitter:   getEnv("SENTENCE_SPLITTER", "uax29"),
		TokenCounter:       getEnv("TOKEN_COUNTER", "words"),
		TiktokenEncoding:   getEnv("TIKTOKEN_ENCODING", "cl100k_base"),

		EmbedProvider:    getEnv("EMBED_PROVIDER", "gemini"),
		AIAPIKey:         getEnv("GEMINI_API_KEY", ""),
		EmbedModel:       getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:         getEnvInt("EMBED_DIM", 384),
		EmbedBatchSize:   getEnvInt("EMBED_BATCH_SIZE", 64),
		EmbedConcurrency: getEnvInt("EMBED_CONCURRENCY", 1),
		EmbedRPS:         getEnvFloat("EMBED_RPS", 0),

		CacheBackend:   getEnv("CACHE_BACKEND", "sqlite"),
		CachePath:      getEnv("CACHE_PATH", "./data/cache.db"),
		CacheMaxBytes:  getEnvInt64("CACHE_MAX_BYTES", 256<<20),
		EmbedCacheTTL:  getEnvDuration("EMBED_CACHE_TTL", 24*time.Hour),
		ResultCacheTTL: getEnvDuration("RESULT_CACHE_TTL", 24*time.Hour),

		PipelineVersion: getEnv("PIPELINE_VERSION", "v1"),
		DomainTag:       getEnv("DOMAIN_TAG", ""),

		IngestWorkers: getEnvInt("INGEST_WORKERS", 4),
		IngestQueue:   getEnvInt("INGEST_QUEUE", 64),
		IngestTimeout: getEnvDuration("INGEST_TIMEOUT", 5*time.Minute),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		APIKeyHash:  getEnv("API_KEY_HASH", ""),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),

		InboxDir: getEnv("INBOX_DIR", ""),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	return cfg
}

// Validate checks the struct tags above.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvInt64(key string, def int64) int64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a number, using default %g", key, v, def)
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
