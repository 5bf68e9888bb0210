package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds the application configuration.
// Note: secrets come from the environment only - the .env file is loaded
// by the entry point before this package is used.
type Config struct {
	// Environment
	Environment string
	Port        string

	// LLM providers (OpenAI-compatible chat completions)
	LLMProviders    []string // Tried in order, e.g. ["groq", "cerebras"]
	GroqAPIKey      string
	GroqModel       string
	CerebrasAPIKey  string
	CerebrasModel   string
	BatchSegmentation bool // Segment songs in batches ahead of per-track processing

	// Embeddings (OpenAI-compatible embeddings endpoint serving BGE-M3)
	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string

	// Qdrant
	QdrantHost   string
	QdrantPort   int
	QdrantURL    string // Cloud deployment URL, used together with QdrantAPIKey
	QdrantAPIKey string

	// R2 (S3-compatible object storage)
	R2Endpoint        string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicDomain    string

	// Storage paths
	OutputDir     string
	CuratedDBPath string
	StatusDBPath  string

	// Observability
	SentryDSN string
}

func Load() *Config {
	outputDir := getEnv("OUTPUT_DIR", "output")

	return &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		Port:              getEnv("PORT", "8080"),
		LLMProviders:      splitList(getEnv("LLM_PROVIDERS", "groq")),
		GroqAPIKey:        getEnv("GROQ_API_KEY", ""),
		GroqModel:         getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		CerebrasAPIKey:    getEnv("CEREBRAS_API_KEY", ""),
		CerebrasModel:     getEnv("CEREBRAS_MODEL", "llama-3.3-70b"),
		BatchSegmentation: getEnv("ENABLE_BATCH_SEGMENTATION", "true") == "true",
		EmbeddingBaseURL:  getEnv("EMBEDDING_BASE_URL", ""),
		EmbeddingAPIKey:   getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "BAAI/bge-m3"),
		QdrantHost:        getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:        getEnvInt("QDRANT_PORT", 6334),
		QdrantURL:         getEnv("QDRANT_URL", ""),
		QdrantAPIKey:      getEnv("QDRANT_API_KEY", ""),
		R2Endpoint:        getEnv("R2_ENDPOINT", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicDomain:    getEnv("R2_PUBLIC_DOMAIN", ""),
		OutputDir:         outputDir,
		CuratedDBPath:     getEnv("CURATED_DB_PATH", filepath.Join("data", "curated_tracks.sqlite")),
		StatusDBPath:      getEnv("STATUS_DB_PATH", filepath.Join("data", "pipeline_status.sqlite")),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
	}
}

// AudioDir is where full downloads land before slicing.
func (c *Config) AudioDir() string {
	return filepath.Join(c.OutputDir, "audio")
}

// SnippetsDir is where sliced snippets land before upload.
func (c *Config) SnippetsDir() string {
	return filepath.Join(c.OutputDir, "snippets")
}

// SkippedSongsLog is the JSONL diagnostics file for skipped tracks.
func (c *Config) SkippedSongsLog() string {
	return filepath.Join(c.OutputDir, "skipped_songs.jsonl")
}

// IsR2Configured reports whether all required R2 variables are set.
func (c *Config) IsR2Configured() bool {
	return c.R2Endpoint != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
