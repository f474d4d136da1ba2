package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxConcurrency  int
	RateLimitMs     int
	MaxRetries      int
	MaxListingPages int
	RequestTimeout  time.Duration
	Fetcher         string
	UserAgent       string
	ChromeBin       string

	SourcesFile string
	Sources     []string

	CSVOutputPath string

	UploadEnabled  bool
	CMSURL         string
	CMSToken       string
	CMSCollection  string
	GeocoderURL    string
	GeocodeTimeout time.Duration

	RabbitMQURL      string
	RabbitMQExchange string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	PushgatewayURL  string
	LogLevel        string
	CleanupPageSize int
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "festivals_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:     getEnvInt("RATE_LIMIT_MS", 1000),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		MaxListingPages: getEnvInt("MAX_LISTING_PAGES", 5),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		Fetcher:         getEnv("FETCHER", "http"),
		UserAgent: getEnv("USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		ChromeBin: getEnv("CHROME_BIN", ""),

		SourcesFile: getEnv("SOURCES_FILE", ""),
		Sources:     getEnvList("SOURCES"),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/festivals.csv"),

		UploadEnabled:  getEnvBool("UPLOAD_ENABLED", false),
		CMSURL:         getEnv("CMS_URL", "http://localhost:1337"),
		CMSToken:       getEnv("CMS_TOKEN", ""),
		CMSCollection:  getEnv("CMS_COLLECTION", "festivals"),
		GeocoderURL:    getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocodeTimeout: getEnvDuration("GEOCODE_TIMEOUT", 3*time.Second),

		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "festivals"),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "festival-datasets"),
		MinIOUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		PushgatewayURL:  getEnv("PUSHGATEWAY_URL", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CleanupPageSize: getEnvInt("CLEANUP_PAGE_SIZE", 100),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
