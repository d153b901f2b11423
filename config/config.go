package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// StreakBonus is one row of the check-in bonus table.
// Every matches streaks that are a multiple of Every; At matches exactly one streak length.
type StreakBonus struct {
	Every int `json:"Every"`
	At    int `json:"At"`
	Bonus int `json:"Bonus"`
}

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Redis for the check-in guard and revoked token lookups
	RedisEnabled  bool
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Points ledger
	CheckInBasePoints int
	StreakBonuses     []StreakBonus
	HistoryMaxLimit   int
	PointsTimezone    string
	SnowflakeNode     int64
	// Admins
	AdminUsernames []string
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}
	if _, err := cfg.Location(); err != nil {
		log.Fatalf("invalid POINTS_TIMEZONE %q: %v", cfg.PointsTimezone, err)
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Tests use it instead of the environment.
func Set(c AppConfig) {
	cfg = c
	loaded = true
}

// Location resolves the time zone that defines a calendar day for check-ins.
func (c AppConfig) Location() (*time.Location, error) {
	switch c.PointsTimezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.PointsTimezone)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	var app struct {
		AppPort            string
		JWTSecret          string
		RateLimitPerMinute int
		AllowedOrigins     []string
		GinMode            string
		GinPath            string
	}
	var dbs struct {
		Driver      string
		DatabaseURI string
		DBHost      string
		DBPort      string
		DBUser      string
		DBPassword  string
		DBName      string
	}
	var rds struct {
		Enabled       *bool
		RedisHost     string
		RedisPort     int
		RedisDB       int
		RedisPassword string
	}
	var lg struct {
		Level      string
		Path       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	}
	var pts struct {
		CheckInBasePoints int
		StreakBonuses     []StreakBonus
		HistoryMaxLimit   int
		Timezone          string
		SnowflakeNode     int64
	}
	var adm struct {
		Usernames []string
	}

	sections := []struct {
		key string
		dst any
	}{
		{"app", &app}, {"database", &dbs}, {"redis", &rds}, {"log", &lg}, {"points", &pts}, {"admin", &adm},
	}
	for _, s := range sections {
		b, ok := raw[s.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(b, s.dst); err != nil {
			return fmt.Errorf("section %s: %w", s.key, err)
		}
	}

	out.AppPort = app.AppPort
	out.JWTSecret = app.JWTSecret
	out.RateLimitPerMinute = app.RateLimitPerMinute
	if len(app.AllowedOrigins) > 0 {
		out.AllowedOrigins = app.AllowedOrigins
	}
	out.GinMode = app.GinMode
	out.GinPath = app.GinPath

	out.DBDriver = dbs.Driver
	out.DatabaseURI = dbs.DatabaseURI
	out.DBHost = dbs.DBHost
	out.DBPort = dbs.DBPort
	out.DBUser = dbs.DBUser
	out.DBPassword = dbs.DBPassword
	out.DBName = dbs.DBName

	if rds.Enabled != nil {
		out.RedisEnabled = *rds.Enabled
	}
	out.RedisHost = rds.RedisHost
	out.RedisPort = rds.RedisPort
	out.RedisDB = rds.RedisDB
	out.RedisPassword = rds.RedisPassword

	out.LogLevel = lg.Level
	out.LogPath = lg.Path
	out.LogMaxSizeMB = lg.MaxSizeMB
	out.LogMaxBackups = lg.MaxBackups
	out.LogMaxAgeDays = lg.MaxAgeDays
	out.LogCompress = lg.Compress

	out.CheckInBasePoints = pts.CheckInBasePoints
	if pts.StreakBonuses != nil {
		out.StreakBonuses = pts.StreakBonuses
	}
	out.HistoryMaxLimit = pts.HistoryMaxLimit
	out.PointsTimezone = pts.Timezone
	out.SnowflakeNode = pts.SnowflakeNode

	if len(adm.Usernames) > 0 {
		out.AdminUsernames = adm.Usernames
	}
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		switch c.DBDriver {
		case "postgres":
			c.DBPort = "5432"
		default:
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "staypoints"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.CheckInBasePoints == 0 {
		c.CheckInBasePoints = 10
	}
	// nil means "not configured"; an explicit empty list disables bonuses
	if c.StreakBonuses == nil {
		c.StreakBonuses = []StreakBonus{{Every: 7, Bonus: 20}}
	}
	if c.HistoryMaxLimit == 0 {
		c.HistoryMaxLimit = 100
	}
	if c.PointsTimezone == "" {
		c.PointsTimezone = "Local"
	}
	if c.SnowflakeNode == 0 {
		c.SnowflakeNode = 1
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = strings.ToLower(v)
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_ENABLED", ""); v != "" {
		c.RedisEnabled = v == "true"
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	// Logging env overrides
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	// Points env overrides
	if v := getEnv("CHECKIN_BASE_POINTS", ""); v != "" {
		c.CheckInBasePoints = mustParseInt(v)
	}
	if v, ok := os.LookupEnv("STREAK_BONUSES"); ok {
		bonuses, err := ParseStreakBonuses(v)
		if err != nil {
			log.Fatalf("invalid STREAK_BONUSES: %v", err)
		}
		c.StreakBonuses = bonuses
	}
	if v := getEnv("HISTORY_MAX_LIMIT", ""); v != "" {
		c.HistoryMaxLimit = mustParseInt(v)
	}
	if v := getEnv("POINTS_TIMEZONE", ""); v != "" {
		c.PointsTimezone = v
	}
	if v := getEnv("SNOWFLAKE_NODE", ""); v != "" {
		c.SnowflakeNode = int64(mustParseInt(v))
	}
	if v := getEnv("ADMIN_USERNAMES", ""); v != "" {
		c.AdminUsernames = readListEnv("ADMIN_USERNAMES", c.AdminUsernames)
	}
}

// ParseStreakBonuses parses the compact env form "every:7=20,at:30=100".
// An empty string yields an empty (non-nil) table, which disables bonuses.
func ParseStreakBonuses(raw string) ([]StreakBonus, error) {
	out := []StreakBonus{}
	for _, item := range splitAndTrim(raw) {
		kind, rest, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("%q: expected every:<n>=<bonus> or at:<n>=<bonus>", item)
		}
		days, bonus, ok := strings.Cut(rest, "=")
		if !ok {
			return nil, fmt.Errorf("%q: missing =<bonus>", item)
		}
		n, err := strconv.Atoi(strings.TrimSpace(days))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%q: streak length must be a positive integer", item)
		}
		b, err := strconv.Atoi(strings.TrimSpace(bonus))
		if err != nil || b < 0 {
			return nil, fmt.Errorf("%q: bonus must be a non-negative integer", item)
		}
		switch strings.ToLower(strings.TrimSpace(kind)) {
		case "every":
			out = append(out, StreakBonus{Every: n, Bonus: b})
		case "at":
			out = append(out, StreakBonus{At: n, Bonus: b})
		default:
			return nil, fmt.Errorf("%q: unknown rule kind %q", item, kind)
		}
	}
	return out, nil
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
