package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses the TTL durations
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Values are read once at startup and never
// mutated afterwards.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret   string // secret used to sign access tokens, minimum 32 bytes
	JWTIssuer   string // issuer claim stamped into and required from tokens
	JWTAudience string // audience claim stamped into and required from tokens

	AccessTTL  time.Duration // access token lifetime
	RefreshTTL time.Duration // refresh token lifetime
	OTPTTL     time.Duration // recovery code lifetime
	BcryptCost int           // bcrypt cost for password hashing

	APIKey string // optional API key gating the whole HTTP surface

	SMTPHost string // SMTP relay host
	SMTPPort string // SMTP relay port
	SMTPUser string // SMTP username
	SMTPPass string // SMTP password
	SMTPFrom string // From address for outgoing mail
}

// minSecretLen is the smallest signing secret accepted, in bytes. A shorter
// secret weakens HS256 below its design strength, so startup refuses it.
const minSecretLen = 32

// Load reads configuration from environment variables and returns a Config.
// Required variables are enforced by must(); missing or invalid values cause
// the process to exit before it can serve traffic.
func Load() Config {
	cfg := Config{
		Env:         must("APP_ENV"),
		Port:        must("APP_PORT"),
		DBUser:      must("DB_USER"),
		DBPass:      os.Getenv("DB_PASS"), // empty allowed
		DBHost:      must("DB_HOST"),
		DBPort:      must("DB_PORT"),
		DBName:      must("DB_NAME"),
		JWTSecret:   must("JWT_SECRET"),
		JWTIssuer:   must("JWT_ISSUER"),
		JWTAudience: must("JWT_AUDIENCE"),
		AccessTTL:   durDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:  durDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		OTPTTL:      durDefault("OTP_TTL", 10*time.Minute),
		BcryptCost:  mustInt("BCRYPT_COST"),
		APIKey:      os.Getenv("API_KEY"),
		SMTPHost:    os.Getenv("SMTP_HOST"),
		SMTPPort:    os.Getenv("SMTP_PORT"),
		SMTPUser:    os.Getenv("SMTP_USERNAME"),
		SMTPPass:    os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:    os.Getenv("SMTP_FROM"),
	}
	if len(cfg.JWTSecret) < minSecretLen {
		log.Fatalf("JWT_SECRET too short: need at least %d bytes, got %d", minSecretLen, len(cfg.JWTSecret))
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// durDefault parses a duration env var, falling back to the default when the
// variable is unset. An unparseable value is fatal rather than silently
// replaced.
func durDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
