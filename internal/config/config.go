package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read from .env and the environment
type Config struct {
	Env          string
	Port         string
	AppURL       string
	DatabaseURL  string
	RedisURL     string
	Firebase     FirebaseConfig
	AuthDisabled bool
	Receipts     ReceiptConfig
	Worker       WorkerConfig
}

type FirebaseConfig struct {
	CredentialsPath string
}

// ReceiptConfig points at an S3-compatible bucket served from PublicBaseURL;
// empty Bucket disables uploads
type ReceiptConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

type WorkerConfig struct {
	Interval       time.Duration
	ReconcileRRule string
}

// Load reads .env if present and returns the effective configuration.
// The returned bool is false when no .env file was found.
func Load() (Config, bool) {
	loaded := godotenv.Load() == nil

	cfg := Config{
		Env:          getEnv("APP_ENV", "production"),
		Port:         getEnv("PORT", "8080"),
		AppURL:       strings.TrimSuffix(getEnv("APP_URL", "http://localhost:8080"), "/"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		AuthDisabled: getBool("AUTH_DISABLED", false),
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase-service-account.json"),
		},
		Receipts: ReceiptConfig{
			Bucket:          os.Getenv("RECEIPT_BUCKET"),
			Region:          getEnv("RECEIPT_REGION", "auto"),
			Endpoint:        os.Getenv("RECEIPT_ENDPOINT"),
			AccessKeyID:     os.Getenv("RECEIPT_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("RECEIPT_SECRET_ACCESS_KEY"),
			PublicBaseURL:   os.Getenv("RECEIPT_PUBLIC_BASE_URL"),
		},
		Worker: WorkerConfig{
			Interval:       getDuration("WORKER_INTERVAL", 5*time.Minute),
			ReconcileRRule: getEnv("RECONCILE_RRULE", "FREQ=DAILY;BYHOUR=2;BYMINUTE=0"),
		},
	}
	return cfg, loaded
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
