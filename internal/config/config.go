package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	SMTP       SMTPConfig
	Keys       APIKeys
	Generation GenerationConfig
	Credits    CreditConfig
	Payment    PaymentConfig
	Session    SessionConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type APIKeys struct {
	JWTSecret string
	OpenAI    string
}

type GenerationConfig struct {
	Backend             string // "remote" or "local"
	ServiceURL          string
	CallTimeout         time.Duration
	ValidateBeforeDebit bool
	ListWorkers         int
	LLMProvider         string // "ollama" or "openai"
	LLMModel            string
	OllamaBaseURL       string
	OpenAIBaseURL       string
	SyllabusTTL         time.Duration
	ExportFormat        string // "pdf" or "markdown", local backend only
}

type CreditConfig struct {
	StartingGrant   int
	RefundOnFailure bool
}

type PaymentConfig struct {
	MidtransServerKey    string
	MidtransIsProduction bool
	SubscriptionCredits  int
	SubscriptionMonths   int
	SubscriptionPrice    int64
	Currency             string
	LedgerTopic          string
}

type SessionConfig struct {
	TTL time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.json"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "QnA Generator"),
		},
		Keys: APIKeys{
			JWTSecret: getEnv("JWT_SECRET", ""),
			OpenAI:    getEnv("OPENAI_API_KEY", ""),
		},
		Generation: GenerationConfig{
			Backend:             getEnv("GENERATION_BACKEND", "remote"),
			ServiceURL:          getEnv("GENERATION_SERVICE_URL", "http://localhost:5000"),
			CallTimeout:         getEnvAsDuration("GENERATION_CALL_TIMEOUT", 120*time.Second),
			ValidateBeforeDebit: getEnvAsBool("GENERATION_VALIDATE_BEFORE_DEBIT", false),
			ListWorkers:         getEnvAsInt("GENERATION_LIST_WORKERS", 4),
			LLMProvider:         getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:            getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
			SyllabusTTL:         getEnvAsDuration("SYLLABUS_TTL", 6*time.Hour),
			ExportFormat:        getEnv("GENERATION_EXPORT_FORMAT", "pdf"),
		},
		Credits: CreditConfig{
			StartingGrant:   getEnvAsInt("CREDIT_STARTING_GRANT", 1),
			RefundOnFailure: getEnvAsBool("CREDIT_REFUND_ON_FAILURE", false),
		},
		Payment: PaymentConfig{
			MidtransServerKey:    getEnv("MIDTRANS_SERVER_KEY", ""),
			MidtransIsProduction: getEnvAsBool("MIDTRANS_IS_PRODUCTION", false),
			SubscriptionCredits:  getEnvAsInt("SUBSCRIPTION_CREDITS", 25),
			SubscriptionMonths:   getEnvAsInt("SUBSCRIPTION_PERIOD_MONTHS", 1),
			SubscriptionPrice:    int64(getEnvAsInt("SUBSCRIPTION_PRICE", 49)),
			Currency:             getEnv("SUBSCRIPTION_CURRENCY", "INR"),
			LedgerTopic:          getEnv("LEDGER_CHANGED_TOPIC_NAME", "LEDGER_CHANGED"),
		},
		Session: SessionConfig{
			TTL: getEnvAsDuration("SESSION_TTL", 6*time.Hour),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
