package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"

	DayWindowUTC   = "utc"
	DayWindowLocal = "local"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// StaticDir is the absolute path to the directory served for unmatched paths.
	// Set via STATIC_DIR (relative paths are resolved against the process working directory at startup).
	StaticDir string

	// CORSAllowedOrigins is applied to every response; "*" allows any origin.
	CORSAllowedOrigins []string

	StoreBackend string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration

	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	MongoTimeout    time.Duration

	// APIKey enables the shared-secret check on ingestion when non-empty.
	APIKey string

	// DayWindow selects the reference frame for day queries: "utc" or "local".
	DayWindow string

	// MQTTBroker enables MQTT ingestion when non-empty.
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string
}

// LoadDotEnv loads variables from the given .env files (default ".env") without
// overriding variables already present. A missing file is not an error.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
			if _, err := strconv.Atoi(port); err != nil {
				return Config{}, fmt.Errorf("invalid PORT %q: %w", port, err)
			}
			httpAddr = ":" + port
		} else {
			httpAddr = ":8080"
		}
	}

	staticDir := strings.TrimSpace(os.Getenv("STATIC_DIR"))
	if staticDir == "" {
		staticDir = "public"
	}
	staticDir, err = filepath.Abs(staticDir)
	if err != nil {
		return Config{}, fmt.Errorf("STATIC_DIR %q: %w", staticDir, err)
	}

	corsOrigins := parseList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND")))
	if backend == "" {
		backend = BackendSQLite
	}
	switch backend {
	case BackendSQLite, BackendMongo:
	default:
		return Config{}, fmt.Errorf("invalid STORE_BACKEND %q (allowed: sqlite, mongo)", backend)
	}

	driver := strings.TrimSpace(os.Getenv("DB_DRIVER"))
	if driver == "" {
		driver = "sqlite3"
	}
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	path := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if path == "" {
		path = "data/thermolog.db"
	}

	maxOpenConns, err := intFromEnv("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := intFromEnv("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := durationFromEnv("DB_CONN_MAX_LIFETIME", 0)
	if err != nil {
		return Config{}, err
	}

	mongoURI := strings.TrimSpace(os.Getenv("MONGO_URI"))
	if backend == BackendMongo && mongoURI == "" {
		return Config{}, errors.New("MONGO_URI is required when STORE_BACKEND=mongo")
	}
	mongoDatabase := strings.TrimSpace(os.Getenv("MONGO_DATABASE"))
	if mongoDatabase == "" {
		mongoDatabase = "iot"
	}
	mongoCollection := strings.TrimSpace(os.Getenv("MONGO_COLLECTION"))
	if mongoCollection == "" {
		mongoCollection = "temperatures"
	}
	mongoTimeout, err := durationFromEnv("MONGO_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	if mongoTimeout <= 0 {
		return Config{}, fmt.Errorf("MONGO_TIMEOUT must be positive, got %v", mongoTimeout)
	}

	dayWindow := strings.ToLower(strings.TrimSpace(os.Getenv("DAY_WINDOW")))
	if dayWindow == "" {
		dayWindow = DayWindowUTC
	}
	switch dayWindow {
	case DayWindowUTC, DayWindowLocal:
	default:
		return Config{}, fmt.Errorf("invalid DAY_WINDOW %q (allowed: utc, local)", dayWindow)
	}

	mqttPort, err := intFromEnv("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}
	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "thermolog-server"
	}
	mqttTopic := strings.TrimSpace(os.Getenv("MQTT_TOPIC"))
	if mqttTopic == "" {
		mqttTopic = "thermolog/+/temperature"
	}

	return Config{
		AppEnv:                appEnv,
		LogLevel:              level,
		HTTPAddr:              httpAddr,
		StaticDir:             staticDir,
		CORSAllowedOrigins:    corsOrigins,
		StoreBackend:          backend,
		SQLiteDriver:          driver,
		SQLiteDSN:             dsn,
		SQLitePath:            path,
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		MongoURI:              mongoURI,
		MongoDatabase:         mongoDatabase,
		MongoCollection:       mongoCollection,
		MongoTimeout:          mongoTimeout,
		APIKey:                strings.TrimSpace(os.Getenv("API_KEY")),
		DayWindow:             dayWindow,
		MQTTBroker:            strings.TrimSpace(os.Getenv("MQTT_BROKER")),
		MQTTPort:              mqttPort,
		MQTTClientID:          mqttClientID,
		MQTTTopic:             mqttTopic,
	}, nil
}

// DayWindowLocation returns the time zone day windows are computed in.
func (c Config) DayWindowLocation() *time.Location {
	if c.DayWindow == DayWindowLocal {
		return time.Local
	}
	return time.UTC
}

func intFromEnv(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func durationFromEnv(key string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
