package app

import (
	"time"

	"github.com/structa/knowledge-backend/internal/jobs"
	"github.com/structa/knowledge-backend/internal/platform/envutil"
)

type CacheConfig struct {
	SearchTTL   time.Duration
	AnswerTTL   time.Duration
	CardTTL     time.Duration
	EvidenceTTL time.Duration
	DurationTTL time.Duration
	MaxEntries  int
}

type Config struct {
	ServiceName string
	Environment string
	Version     string
	Addr        string

	HybridAlpha      float64
	TrustLexiconPath string

	Cache CacheConfig
	Jobs  jobs.Config
}

func LoadConfig() Config {
	return Config{
		ServiceName: envutil.Str("SERVICE_NAME", "knowledge-backend"),
		Environment: envutil.Str("APP_ENV", "development"),
		Version:     envutil.Str("APP_VERSION", ""),
		Addr:        envutil.Str("HTTP_ADDR", ":8080"),

		HybridAlpha:      envutil.Float("SEARCH_HYBRID_ALPHA", 0.6),
		TrustLexiconPath: envutil.Str("TRUST_LEXICON_PATH", ""),

		Cache: CacheConfig{
			SearchTTL:   envutil.Duration("CACHE_SEARCH_TTL", 10*time.Minute),
			AnswerTTL:   envutil.Duration("CACHE_ANSWER_TTL", 30*time.Minute),
			CardTTL:     envutil.Duration("CACHE_CARD_TTL", 30*time.Minute),
			EvidenceTTL: envutil.Duration("CACHE_EVIDENCE_TTL", 15*time.Minute),
			DurationTTL: envutil.Duration("CACHE_DURATION_TTL", 15*time.Minute),
			MaxEntries:  envutil.Int("CACHE_MAX_ENTRIES", 512),
		},
		Jobs: jobs.Config{
			Concurrency: envutil.Int("JOB_CONCURRENCY", 3),
			QueueSize:   envutil.Int("JOB_QUEUE_SIZE", 64),
			RecordTTL:   envutil.Duration("JOB_RECORD_TTL", 30*time.Minute),
			MaxRecords:  envutil.Int("JOB_MAX_RECORDS", 200),
		},
	}
}
