package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	JWTSecret     string
	MongoURI      string
	DBName        string
	SkipAuth      bool
	DevCustomerID string // Customer injected when SkipAuth is on
	Environment   string
	AppId         string
	CORSOrigins   string

	ContactStore string // "mongo" or "postgres"
	PostgresDSN  string

	IntegrationAPIURL          string
	IntegrationWorkspaceKey    string
	IntegrationWorkspaceSecret string
	IntegrationTimeout         time.Duration
	IntegrationMaxRetries      int

	ProvisionSchedule string // standard cron expression, empty disables
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:          getEnv("PORT", "8080"),
		JWTSecret:     getEnv("JWT_SECRET", "secret"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:        getEnv("DB_NAME", "contacts"),
		SkipAuth:      getEnv("SKIP_AUTH", "false") == "true",
		DevCustomerID: getEnv("DEV_CUSTOMER_ID", "dev-customer"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AppId:         getEnv("APP_ID", "contacts-sync"),
		CORSOrigins:   getEnv("CORS_ORIGINS", "http://localhost:3000"),

		ContactStore: strings.ToLower(getEnv("CONTACT_STORE", "mongo")),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),

		IntegrationAPIURL:          strings.TrimRight(getEnv("INTEGRATION_API_URL", "https://api.integration.app"), "/"),
		IntegrationWorkspaceKey:    getEnv("INTEGRATION_WORKSPACE_KEY", ""),
		IntegrationWorkspaceSecret: getEnv("INTEGRATION_WORKSPACE_SECRET", ""),
		IntegrationTimeout:         getDuration("INTEGRATION_TIMEOUT", 15*time.Second),
		IntegrationMaxRetries:      getInt("INTEGRATION_MAX_RETRIES", 2),

		ProvisionSchedule: getEnv("PROVISION_SCHEDULE", ""),
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
