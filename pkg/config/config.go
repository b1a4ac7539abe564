package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

type Config struct {
	ServerPort      string
	FirebaseProject string
	Environment     string
	LogLevel        string
	JWTSecret       string
	JWTExpiry       int64
	StorageBucket   string

	// ServiceAccountJSON wins over ServiceAccountPath; with neither set the
	// Google clients fall back to application default credentials.
	ServiceAccountJSON string
	ServiceAccountPath string

	// StoreBackend selects the shared store: "firestore" or "memory".
	StoreBackend string
	// AuthMode selects how bearer tokens are verified: "firebase" or "dev".
	AuthMode string

	TypingDebounce     time.Duration
	PresenceStaleAfter time.Duration // 0 disables the staleness view
	SendRatePerMinute  int
	HTTPRatePerMinute  int
	ShutdownTimeout    time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		FirebaseProject:    getEnv("FIREBASE_PROJECT_ID", ""),
		Environment:        getEnv("ENVIRONMENT", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiry:          getEnvAsInt64("JWT_EXPIRY", 24*60*60), // 24 hours
		StorageBucket:      getEnv("STORAGE_BUCKET", ""),
		ServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		StoreBackend:       getEnv("STORE_BACKEND", "firestore"),
		AuthMode:           getEnv("AUTH_MODE", "firebase"),
		TypingDebounce:     getEnvAsDuration("TYPING_DEBOUNCE", 2*time.Second),
		PresenceStaleAfter: getEnvAsDuration("PRESENCE_STALE_AFTER", 0),
		SendRatePerMinute:  int(getEnvAsInt64("SEND_RATE_PER_MINUTE", 60)),
		HTTPRatePerMinute:  int(getEnvAsInt64("HTTP_RATE_PER_MINUTE", 300)),
		ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if config.StoreBackend != "firestore" && config.StoreBackend != "memory" {
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", config.StoreBackend)
	}
	if config.AuthMode != "firebase" && config.AuthMode != "dev" {
		return nil, fmt.Errorf("unknown AUTH_MODE %q", config.AuthMode)
	}
	if config.UsesFirebase() && config.FirebaseProject == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required unless STORE_BACKEND=memory and AUTH_MODE=dev")
	}
	if config.HTTPRatePerMinute <= 0 {
		config.HTTPRatePerMinute = 300
	}

	return config, nil
}

// ClientOptions returns the credentials shared by the Firebase, Firestore
// and Cloud Storage clients.
func (c *Config) ClientOptions() []option.ClientOption {
	switch {
	case c.ServiceAccountJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.ServiceAccountJSON))}
	case c.ServiceAccountPath != "":
		return []option.ClientOption{option.WithCredentialsFile(c.ServiceAccountPath)}
	}
	return nil
}

// UsesFirebase reports whether a Firebase app must be initialised.
func (c *Config) UsesFirebase() bool {
	return c.StoreBackend == "firestore" || c.AuthMode == "firebase"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
