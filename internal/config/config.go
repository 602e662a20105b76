package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration parsed from environment variables.
type Config struct {
	ListenAddr   string
	DownloadsDir string

	ProbeTimeout         time.Duration
	FetchTimeout         time.Duration
	MaxConcurrentFetches int

	// Artifacts survive this long after the response finishes, so slow
	// consumers can drain the connection before the file disappears.
	CleanupDelay time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RequestsPerSecond float64
	BurstSize         int
	PerIPRPS          float64
	PerIPBurst        int

	RequireAPIKey  bool
	APIKeys        []string
	AllowedOrigins []string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func Load() *Config {
	return &Config{
		ListenAddr:   getEnv("LISTEN_ADDR", ":3000"),
		DownloadsDir: getEnv("DOWNLOADS_DIR", "downloads"),

		ProbeTimeout:         getEnvDuration("PROBE_TIMEOUT", 90*time.Second),
		FetchTimeout:         getEnvDuration("FETCH_TIMEOUT", 30*time.Minute),
		MaxConcurrentFetches: getEnvInt("MAX_CONCURRENT_FETCHES", 20),

		CleanupDelay: getEnvDuration("CLEANUP_DELAY", 10*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RequestsPerSecond: getEnvFloat("REQUESTS_PER_SECOND", 100),
		BurstSize:         getEnvInt("BURST_SIZE", 200),
		PerIPRPS:          getEnvFloat("PER_IP_RPS", 10),
		PerIPBurst:        getEnvInt("PER_IP_BURST", 20),

		RequireAPIKey:  getEnvBool("REQUIRE_API_KEY", false),
		APIKeys:        splitAndTrim(getEnv("API_KEYS", "")),
		AllowedOrigins: splitAndTrim(getEnv("ALLOWED_ORIGINS", "*")),
	}
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if pt := strings.TrimSpace(p); pt != "" {
			res = append(res, pt)
		}
	}
	return res
}
