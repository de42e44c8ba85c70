package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Admission AdmissionConfig
	Session   SessionConfig
	Unlock    UnlockConfig
	QR        QRConfig
	Reports   ReportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AdmissionConfig holds the attendance gate thresholds. Defaults mirror the
// classroom deployment: 100 m geofence, 40 minute device lock, 1 year device
// binding cookie.
type AdmissionConfig struct {
	GeofenceRadiusMeters float64
	DeviceLockTTL        time.Duration
	DeviceBindingTTL     time.Duration
}

// SessionConfig controls class code and scan token generation.
type SessionConfig struct {
	CodeLength  int
	TokenLength int
}

// UnlockConfig configures signed device-unlock links.
type UnlockConfig struct {
	Secret string
	TTL    time.Duration
}

// QRConfig controls QR image rendering for issued class codes.
type QRConfig struct {
	StorageDir string
	CheckinURL string
	Size       int
}

// ReportsConfig tunes the teacher-facing attendance report endpoints.
type ReportsConfig struct {
	SummaryCacheTTL time.Duration
	ExportDir       string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Admission = AdmissionConfig{
		GeofenceRadiusMeters: v.GetFloat64("GEOFENCE_RADIUS_METERS"),
		DeviceLockTTL:        parseDuration(v.GetString("DEVICE_LOCK_TTL"), 40*time.Minute),
		DeviceBindingTTL:     parseDuration(v.GetString("DEVICE_BINDING_TTL"), 365*24*time.Hour),
	}

	cfg.Session = SessionConfig{
		CodeLength:  v.GetInt("SESSION_CODE_LENGTH"),
		TokenLength: v.GetInt("SESSION_TOKEN_LENGTH"),
	}

	cfg.Unlock = UnlockConfig{
		Secret: v.GetString("UNLOCK_SECRET"),
		TTL:    parseDuration(v.GetString("UNLOCK_TOKEN_TTL"), 5*time.Minute),
	}

	cfg.QR = QRConfig{
		StorageDir: v.GetString("QR_STORAGE_DIR"),
		CheckinURL: v.GetString("QR_CHECKIN_URL"),
		Size:       v.GetInt("QR_IMAGE_SIZE"),
	}

	cfg.Reports = ReportsConfig{
		SummaryCacheTTL: parseDuration(v.GetString("REPORT_SUMMARY_CACHE_TTL"), 5*time.Minute),
		ExportDir:       v.GetString("REPORT_EXPORT_DIR"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "qrmark")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "qrmark-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GEOFENCE_RADIUS_METERS", 100)
	v.SetDefault("DEVICE_LOCK_TTL", "40m")
	v.SetDefault("DEVICE_BINDING_TTL", "8760h")

	v.SetDefault("SESSION_CODE_LENGTH", 6)
	v.SetDefault("SESSION_TOKEN_LENGTH", 8)

	v.SetDefault("UNLOCK_SECRET", "dev_unlock_secret")
	v.SetDefault("UNLOCK_TOKEN_TTL", "300s")

	v.SetDefault("QR_STORAGE_DIR", "./qrcodes")
	v.SetDefault("QR_CHECKIN_URL", "http://localhost:8080/scan")
	v.SetDefault("QR_IMAGE_SIZE", 256)

	v.SetDefault("REPORT_SUMMARY_CACHE_TTL", "5m")
	v.SetDefault("REPORT_EXPORT_DIR", "./exports")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
