package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// DefaultSimilarityThreshold is the compare cutoff used when none is configured.
const DefaultSimilarityThreshold = 0.75

// Config holds application configuration.
type Config struct {
	Port                string
	CORSAllowOrigin     []string
	ObjectStoreType     string
	LocalStoreDir       string
	AWSRegion           string
	S3Bucket            string
	S3Prefix            string
	SSEKMSKeyID         string
	DatabaseURL         string
	Env                 string
	NLPServiceURL       string
	AuditSinkType       string
	AuditSubject        string
	NATSURL             string
	AuditSQSQueueURL    string
	SimilarityThreshold float64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:                getEnv("PORT", "8080"),
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:     normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:       getEnv("LOCAL_STORE_DIR", "./uploads"),
		AWSRegion:           getEnv("AWS_REGION", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Prefix:            getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:         getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:         dbURL,
		Env:                 env,
		NLPServiceURL:       getEnv("NLP_SERVICE_URL", ""),
		AuditSinkType:       normalizeAuditSink(getEnv("AUDIT_SINK", "log")),
		AuditSubject:        getEnv("AUDIT_SUBJECT", "docverify.audit"),
		NATSURL:             getEnv("NATS_URL", ""),
		AuditSQSQueueURL:    getEnv("AUDIT_SQS_QUEUE_URL", ""),
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", DefaultSimilarityThreshold),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || val < 0 || val > 1 {
		log.Printf("config: %s invalid value %q, using %v", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeAuditSink(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "nats":
		return "nats"
	case "sqs":
		return "sqs"
	default:
		return "log"
	}
}
