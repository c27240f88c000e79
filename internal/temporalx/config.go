package temporalx

import (
	"strings"
	"time"

	"github.com/yungbote/certquiz-backend/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string
	// AITaskQueue carries only the LLM-backed analyzer activities so its
	// worker can be rate limited on its own.
	AITaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	AutoRegisterNamespace bool
	WorkerConcurrency     int
	StartMaxWait          time.Duration
	StartBackoff          time.Duration
	StartBackoffMax       time.Duration
}

func LoadConfig() Config {
	return Config{
		Address:     strings.TrimSpace(envutil.String("TEMPORAL_ADDRESS", "")),
		Namespace:   stringsOr(envutil.String("TEMPORAL_NAMESPACE", ""), "certquiz"),
		TaskQueue:   stringsOr(envutil.String("TEMPORAL_TASK_QUEUE", ""), "certquiz"),
		AITaskQueue: stringsOr(envutil.String("TEMPORAL_AI_TASK_QUEUE", ""), "certquiz-ai"),

		ClientCertPath: strings.TrimSpace(envutil.String("TEMPORAL_CLIENT_CERT_PATH", "")),
		ClientKeyPath:  strings.TrimSpace(envutil.String("TEMPORAL_CLIENT_KEY_PATH", "")),
		ClientCAPath:   strings.TrimSpace(envutil.String("TEMPORAL_CLIENT_CA_PATH", "")),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		WorkerConcurrency:     envutil.Int("WORKER_CONCURRENCY", 4),
		StartMaxWait:          envutil.Duration("TEMPORAL_WORKER_START_MAX_WAIT", 60*time.Second),
		StartBackoff:          envutil.Duration("TEMPORAL_WORKER_START_BACKOFF", 250*time.Millisecond),
		StartBackoffMax:       envutil.Duration("TEMPORAL_WORKER_START_BACKOFF_MAX", 5*time.Second),
	}
}

func stringsOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}
