package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/certquiz-backend/internal/platform/envutil"
)

type Config struct {
	Env          string             `yaml:"env"`
	HTTP         HTTPConfig         `yaml:"http"`
	Auth         AuthConfig         `yaml:"auth"`
	DB           DBConfig           `yaml:"db"`
	Redis        RedisConfig        `yaml:"redis"`
	LLM          LLMConfig          `yaml:"llm"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	Gamification GamificationConfig `yaml:"gamification"`
	OTel         OTelConfig         `yaml:"otel"`
	Storage      StorageConfig      `yaml:"storage"`
}

type HTTPConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type DBConfig struct {
	Driver     string `yaml:"driver"`
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	SSLMode    string `yaml:"sslmode"`
	SQLitePath string `yaml:"sqlite_path"`
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type LLMConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// PipelineConfig holds the knobs for the quiz analysis workflows.
type PipelineConfig struct {
	JoinTimeout       time.Duration `yaml:"join_timeout"`
	RunAttempts       int           `yaml:"run_attempts"`
	ScoringAttempts   int           `yaml:"scoring_attempts"`
	StrengthsAttempts int           `yaml:"strengths_attempts"`
	RecsAttempts      int           `yaml:"recommendations_attempts"`
	MasteryAttempts   int           `yaml:"topic_mastery_attempts"`
	AIRatePerMinute   float64       `yaml:"ai_rate_per_minute"`
	DashboardDebounce time.Duration `yaml:"dashboard_debounce"`
	DashboardCacheTTL time.Duration `yaml:"dashboard_cache_ttl"`
	TierRechecks      int           `yaml:"tier_rechecks"`
	TierRecheckDelay  time.Duration `yaml:"tier_recheck_delay"`
}

type GamificationConfig struct {
	Timezone       string `yaml:"timezone"`
	QuizBaseXP     int    `yaml:"quiz_base_xp"`
	XPPerCorrect   int    `yaml:"xp_per_correct"`
	PerfectBonusXP int    `yaml:"perfect_bonus_xp"`
	QuestionXP     int    `yaml:"question_xp"`
	FlashcardXP    int    `yaml:"flashcard_xp"`
	LoginXP        int    `yaml:"login_xp"`
	DailyGoalXP    int    `yaml:"daily_goal_xp"`
}

type OTelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type StorageConfig struct {
	CardBucket      string `yaml:"card_bucket"`
	CredentialsFile string `yaml:"credentials_file"`
	CDNDomain       string `yaml:"cdn_domain"`
}

// Load reads configuration from the environment and then applies the YAML file
// named by CONFIG_FILE, if any. Keys present in the file win.
func Load() (Config, error) {
	cfg := FromEnv()
	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		return cfg, cfg.Validate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func FromEnv() Config {
	return Config{
		Env: envutil.String("APP_ENV", "dev"),
		HTTP: HTTPConfig{
			Port:        envutil.String("PORT", "8080"),
			CORSOrigins: envutil.List("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		Auth: AuthConfig{
			JWTSecret: envutil.String("JWT_SECRET", ""),
			Issuer:    envutil.String("JWT_ISSUER", ""),
		},
		DB: DBConfig{
			Driver:     envutil.String("DB_DRIVER", "postgres"),
			Host:       envutil.String("POSTGRES_HOST", "localhost"),
			Port:       envutil.String("POSTGRES_PORT", "5432"),
			User:       envutil.String("POSTGRES_USER", "postgres"),
			Password:   envutil.String("POSTGRES_PASSWORD", ""),
			Name:       envutil.String("POSTGRES_NAME", "certquiz"),
			SSLMode:    envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath: envutil.String("SQLITE_PATH", "certquiz.db"),
		},
		Redis: RedisConfig{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
			Channel:  envutil.String("REDIS_CHANNEL", "certquiz:realtime"),
		},
		LLM: LLMConfig{
			Provider:  envutil.String("LLM_PROVIDER", "anthropic"),
			Model:     envutil.String("LLM_MODEL", ""),
			APIKey:    envutil.String("LLM_API_KEY", ""),
			BaseURL:   envutil.String("LLM_BASE_URL", ""),
			MaxTokens: envutil.Int("LLM_MAX_TOKENS", 2048),
			Timeout:   envutil.Duration("LLM_TIMEOUT", 25*time.Second),
		},
		Pipeline: PipelineConfig{
			JoinTimeout:       envutil.Duration("PIPELINE_JOIN_TIMEOUT", 5*time.Minute),
			RunAttempts:       envutil.Int("PIPELINE_RUN_ATTEMPTS", 2),
			ScoringAttempts:   envutil.Int("PIPELINE_SCORING_ATTEMPTS", 3),
			StrengthsAttempts: envutil.Int("PIPELINE_STRENGTHS_ATTEMPTS", 2),
			RecsAttempts:      envutil.Int("PIPELINE_RECOMMENDATIONS_ATTEMPTS", 2),
			MasteryAttempts:   envutil.Int("PIPELINE_TOPIC_MASTERY_ATTEMPTS", 3),
			AIRatePerMinute:   envutil.Float("PIPELINE_AI_RATE_PER_MINUTE", 10),
			DashboardDebounce: envutil.Duration("PIPELINE_DASHBOARD_DEBOUNCE", 5*time.Minute),
			DashboardCacheTTL: envutil.Duration("PIPELINE_DASHBOARD_CACHE_TTL", 24*time.Hour),
			TierRechecks:      envutil.Int("PIPELINE_TIER_RECHECKS", 2),
			TierRecheckDelay:  envutil.Duration("PIPELINE_TIER_RECHECK_DELAY", 10*time.Second),
		},
		Gamification: GamificationConfig{
			Timezone:       envutil.String("GAMIFICATION_TZ", "UTC"),
			QuizBaseXP:     envutil.Int("XP_QUIZ_BASE", 25),
			XPPerCorrect:   envutil.Int("XP_PER_CORRECT", 2),
			PerfectBonusXP: envutil.Int("XP_PERFECT_BONUS", 20),
			QuestionXP:     envutil.Int("XP_QUESTION", 2),
			FlashcardXP:    envutil.Int("XP_FLASHCARD", 1),
			LoginXP:        envutil.Int("XP_LOGIN", 5),
			DailyGoalXP:    envutil.Int("DAILY_GOAL_XP", 50),
		},
		OTel: OTelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "certquiz-backend"),
			SampleRatio: envutil.Float("OTEL_SAMPLE_RATIO", 1.0),
		},
		Storage: StorageConfig{
			CardBucket:      envutil.String("GCS_CARD_BUCKET", ""),
			CredentialsFile: envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", ""),
			CDNDomain:       envutil.String("CDN_DOMAIN", ""),
		},
	}
}

func (c Config) Validate() error {
	switch strings.ToLower(c.DB.Driver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.Pipeline.JoinTimeout <= 0 {
		return fmt.Errorf("pipeline join timeout must be positive")
	}
	if c.Pipeline.AIRatePerMinute <= 0 {
		return fmt.Errorf("pipeline ai rate must be positive")
	}
	if _, err := time.LoadLocation(c.Gamification.Timezone); err != nil {
		return fmt.Errorf("invalid gamification timezone %q: %w", c.Gamification.Timezone, err)
	}
	return nil
}

func (c Config) IsProd() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}
