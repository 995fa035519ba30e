package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"airbnb-ingest/models"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ResultsDir    string
	CSVOutputPath string

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	PagesToScrape  int
	ChromeBin      string

	Search models.SearchParams
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "airbnb"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "airbnb123"),
		PostgresDB:       getEnv("POSTGRES_DB", "airbnb_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ResultsDir:    getEnv("RESULTS_DIR", "./results"),
		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/scraped_cards.csv"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		PagesToScrape:  getEnvInt("PAGES_TO_SCRAPE", 2),
		ChromeBin:      getEnv("CHROME_BIN", ""),

		Search: models.SearchParams{
			CheckIn:   getEnv("SEARCH_CHECK_IN", ""),
			CheckOut:  getEnv("SEARCH_CHECK_OUT", ""),
			NELat:     getEnvFloat("SEARCH_NE_LAT", 41.9775),
			NELong:    getEnvFloat("SEARCH_NE_LONG", -80.5187),
			SWLat:     getEnvFloat("SEARCH_SW_LAT", 38.4034),
			SWLong:    getEnvFloat("SEARCH_SW_LONG", -84.8219),
			ZoomValue: getEnvInt("SEARCH_ZOOM", 7),
			PriceMin:  getEnvInt("SEARCH_PRICE_MIN", 0),
			PriceMax:  getEnvInt("SEARCH_PRICE_MAX", 0),
			PlaceType: getEnv("SEARCH_PLACE_TYPE", ""),
			Amenities: getEnvInts("SEARCH_AMENITIES", nil),
			Currency:  getEnv("SEARCH_CURRENCY", "USD"),
			Language:  getEnv("SEARCH_LANGUAGE", "en"),
			ProxyURL:  getEnv("SEARCH_PROXY_URL", ""),
		},
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

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

// getEnvInts parses a comma-separated list of integer codes, e.g. "4,7".
func getEnvInts(key string, fallback []int) []int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []int
	for _, part := range strings.Split(val, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fallback
		}
		out = append(out, n)
	}
	return out
}
