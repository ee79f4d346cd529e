package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds the project config values
type Config struct {
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string
	Env          string

	JWTSecret string
	// ChatRequireAuth rejects anonymous chat sends with a 401
	ChatRequireAuth bool
	// ChatbotUpstreamURL is the AI endpoint replies are proxied to; empty
	// means only canned answers are given
	ChatbotUpstreamURL string
	ChatbotTimeout     time.Duration

	SendRatePerMinute int
	SendRateBurst     int
	RequestTimeout    time.Duration

	SendGridAPIKey   string
	DigestFromEmail  string
	DigestRecipients []string
	AnonSessionTTL   time.Duration

	CloudinaryURL    string
	CloudinaryFolder string
}

// New sets up all config related services
func New() *Config {
	// a missing .env is fine, the environment wins anyway
	_ = godotenv.Load()

	env := getEnv("ENV", "local")

	//setup zap logger and replace default logger
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:                os.Getenv("DB_URI"),
		DatabaseName:       os.Getenv("DB_NAME"),
		BaseURL:            os.Getenv("BASE_URL"),
		Port:               getEnv("PORT", "8080"),
		Env:                env,
		JWTSecret:          os.Getenv("JWT_SECRET"),
		ChatRequireAuth:    getEnvBool("CHAT_REQUIRE_AUTH", false),
		ChatbotUpstreamURL: os.Getenv("CHATBOT_UPSTREAM_URL"),
		ChatbotTimeout:     getEnvDuration("CHATBOT_TIMEOUT", 20*time.Second),
		SendRatePerMinute:  getEnvInt("CHAT_SEND_RATE_PER_MINUTE", 30),
		SendRateBurst:      getEnvInt("CHAT_SEND_RATE_BURST", 5),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		SendGridAPIKey:     os.Getenv("SENDGRID_API_KEY"),
		DigestFromEmail:    getEnv("DIGEST_FROM_EMAIL", "no-reply@clinic-chat.app"),
		DigestRecipients:   splitList(os.Getenv("DIGEST_RECIPIENTS")),
		AnonSessionTTL:     getEnvDuration("ANON_SESSION_TTL", 7*24*time.Hour),
		CloudinaryURL:      os.Getenv("CLOUDINARY_URL"),
		CloudinaryFolder:   getEnv("CLOUDINARY_FOLDER", "chat-attachments"),
	}
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	w.Write([]byte(fmt.Sprintf(`{"response": "%s, %v"}`, message, err)))
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
