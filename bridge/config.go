package bridge

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonr-io/keybridge/crypto/argon2"
	"github.com/sonr-io/keybridge/engine/native"
)

const (
	DefaultHTTPPort        = 8090
	DefaultShutdownTimeout = 30 * time.Second
	DefaultHealthInterval  = 10 * time.Second
)

// Config is the bridge service configuration.
type Config struct {
	HTTPPort        int
	EngineScheme    native.Scheme
	KDFProfile      string
	JWTSecret       []byte
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	HealthInterval  time.Duration
}

// NewConfig reads the configuration from the environment.
func NewConfig(log zerolog.Logger) *Config {
	return LoadConfig(os.Getenv, log)
}

// LoadConfig reads the configuration through getenv.
func LoadConfig(getenv func(string) string, log zerolog.Logger) *Config {
	return &Config{
		HTTPPort:        getHTTPPort(getenv, log),
		EngineScheme:    getEngineScheme(getenv, log),
		KDFProfile:      getenv("KEYBRIDGE_KDF_PROFILE"),
		JWTSecret:       initializeJWTSecret(getenv, log),
		AllowedOrigins:  getAllowedOrigins(getenv),
		ShutdownTimeout: getDuration(getenv, "KEYBRIDGE_SHUTDOWN_TIMEOUT", DefaultShutdownTimeout, log),
		HealthInterval:  getDuration(getenv, "KEYBRIDGE_HEALTH_INTERVAL", DefaultHealthInterval, log),
	}
}

// EngineOptions returns the native engine options selected by c.
func (c *Config) EngineOptions() []native.Option {
	opts := []native.Option{native.WithScheme(c.EngineScheme)}
	if c.KDFProfile == "light" {
		opts = append(opts, native.WithKDFConfig(argon2.LightConfig()))
	}
	return opts
}

func initializeJWTSecret(getenv func(string) string, log zerolog.Logger) []byte {
	secret := getenv("KEYBRIDGE_JWT_SECRET")
	if secret == "" {
		log.Warn().Msg("KEYBRIDGE_JWT_SECRET not set, engine endpoint is unauthenticated")
		return nil
	}
	log.Info().Msg("JWT secret loaded from environment")
	return []byte(secret)
}

func getHTTPPort(getenv func(string) string, log zerolog.Logger) int {
	if port := getenv("KEYBRIDGE_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 && p < 65536 {
			return p
		}
		log.Warn().Str("value", port).Msg("invalid KEYBRIDGE_HTTP_PORT, using default")
	}
	return DefaultHTTPPort
}

func getEngineScheme(getenv func(string) string, log zerolog.Logger) native.Scheme {
	scheme, err := native.ParseScheme(getenv("KEYBRIDGE_ENGINE_SCHEME"))
	if err != nil {
		log.Warn().Err(err).Msg("invalid KEYBRIDGE_ENGINE_SCHEME, using x25519")
		return native.SchemeX25519
	}
	return scheme
}

func getAllowedOrigins(getenv func(string) string) []string {
	raw := getenv("KEYBRIDGE_ALLOWED_ORIGINS")
	if raw == "" {
		return nil
	}
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getDuration(getenv func(string) string, key string, def time.Duration, log zerolog.Logger) time.Duration {
	raw := getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid duration, using default")
		return def
	}
	return d
}
