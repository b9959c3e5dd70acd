package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// Config is the full service configuration
type Config struct {
	Port        string         `yaml:"port"`
	GinMode     string         `yaml:"gin_mode"`
	CORSOrigins []string       `yaml:"cors_origins"`
	Log         LogConfig      `yaml:"log"`
	Store       StoreConfig    `yaml:"store"`
	Auth        AuthConfig     `yaml:"auth"`
	Email       EmailConfig    `yaml:"email"`
	Maps        MapsConfig     `yaml:"maps"`
	Reminders   ReminderConfig `yaml:"reminders"`
	Notify      NotifyConfig   `yaml:"notify"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type StoreConfig struct {
	Driver      string         `yaml:"driver"`
	DatabaseURL string         `yaml:"database_url"`
	Postgres    PostgresConfig `yaml:"postgres"`
	MongoURI    string         `yaml:"mongo_uri"`
	MongoDB     string         `yaml:"mongo_db"`
	BoltPath    string         `yaml:"bolt_path"`
}

// PostgresConfig holds the individual connection parameters used when
// DatabaseURL is not set
type PostgresConfig struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Port     string `yaml:"port"`
	SSLMode  string `yaml:"ssl_mode"`
}

type AuthConfig struct {
	JWTSecret      string `yaml:"jwt_secret"`
	GoogleClientID string `yaml:"google_client_id"`
}

type EmailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
}

type MapsConfig struct {
	APIKey string `yaml:"api_key"`
}

// ReminderConfig controls the daily reminder job
type ReminderConfig struct {
	Schedule string `yaml:"schedule"` // cron spec, minute resolution
	Timezone string `yaml:"timezone"`
	Offsets  []int  `yaml:"offsets"` // days before start
}

type NotifyConfig struct {
	Workers int `yaml:"workers"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Port:    "8080",
		GinMode: "debug",
		Log:     LogConfig{Level: "info"},
		Store: StoreConfig{
			Driver:   DriverMongo,
			MongoURI: "mongodb://localhost:27017",
			MongoDB:  "volunteerhub",
			BoltPath: "volunteerhub.db",
			Postgres: PostgresConfig{SSLMode: "disable"},
		},
		Email: EmailConfig{FromName: "VolunteerHub"},
		Reminders: ReminderConfig{
			Schedule: "0 9 * * *",
			Timezone: "UTC",
			Offsets:  []int{5, 2},
		},
		Notify: NotifyConfig{Workers: 4},
	}
}

// Load builds the configuration from defaults, an optional .env file,
// an optional YAML file and finally the process environment.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString("PORT", &c.Port)
	setString("GIN_MODE", &c.GinMode)
	setList("CORS_ORIGINS", &c.CORSOrigins)

	setString("LOG_LEVEL", &c.Log.Level)
	if err := setBool("LOG_JSON", &c.Log.JSON); err != nil {
		return err
	}

	setString("STORE_DRIVER", &c.Store.Driver)
	setString("DATABASE_URL", &c.Store.DatabaseURL)
	setString("DB_HOST", &c.Store.Postgres.Host)
	setString("DB_USER", &c.Store.Postgres.User)
	setString("DB_PASSWORD", &c.Store.Postgres.Password)
	setString("DB_NAME", &c.Store.Postgres.Name)
	setString("DB_PORT", &c.Store.Postgres.Port)
	setString("DB_SSL_MODE", &c.Store.Postgres.SSLMode)
	setString("MONGO_URI", &c.Store.MongoURI)
	setString("MONGO_DB", &c.Store.MongoDB)
	setString("BOLT_PATH", &c.Store.BoltPath)

	setString("JWT_SECRET", &c.Auth.JWTSecret)
	setString("GOOGLE_CLIENT_ID", &c.Auth.GoogleClientID)

	setString("SENDGRID_API_KEY", &c.Email.SendGridAPIKey)
	setString("SENDGRID_NOTIFICATIONS_FROM_EMAIL", &c.Email.FromEmail)
	setString("SENDGRID_FROM_NAME", &c.Email.FromName)

	setString("GOOGLE_MAPS_API_KEY", &c.Maps.APIKey)

	setString("REMINDER_SCHEDULE", &c.Reminders.Schedule)
	setString("REMINDER_TIMEZONE", &c.Reminders.Timezone)
	if v, ok := os.LookupEnv("REMINDER_OFFSETS"); ok {
		offsets, err := ParseOffsets(v)
		if err != nil {
			return err
		}
		c.Reminders.Offsets = offsets
	}

	if v, ok := os.LookupEnv("NOTIFY_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid NOTIFY_WORKERS %q: %w", v, err)
		}
		c.Notify.Workers = n
	}
	return nil
}

// Validate checks that the settings required by the selected driver are present
func (c *Config) Validate() error {
	var missing []string
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	switch c.Store.Driver {
	case DriverMongo:
		if c.Store.MongoURI == "" {
			missing = append(missing, "MONGO_URI")
		}
		if c.Store.MongoDB == "" {
			missing = append(missing, "MONGO_DB")
		}
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			p := c.Store.Postgres
			for key, v := range map[string]string{
				"DB_HOST": p.Host, "DB_USER": p.User, "DB_NAME": p.Name, "DB_PORT": p.Port,
			} {
				if v == "" {
					missing = append(missing, key)
				}
			}
		}
	case DriverBolt:
		if c.Store.BoltPath == "" {
			missing = append(missing, "BOLT_PATH")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want %s, %s or %s)",
			c.Store.Driver, DriverMongo, DriverPostgres, DriverBolt)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	if len(c.Reminders.Offsets) == 0 {
		return errors.New("at least one reminder offset is required")
	}
	seen := make(map[int]bool, len(c.Reminders.Offsets))
	for _, n := range c.Reminders.Offsets {
		if n < 0 {
			return fmt.Errorf("reminder offset %d is negative", n)
		}
		if seen[n] {
			return fmt.Errorf("reminder offset %d is listed twice", n)
		}
		seen[n] = true
	}
	if _, err := c.ReminderLocation(); err != nil {
		return err
	}
	if c.Notify.Workers < 1 {
		return fmt.Errorf("NOTIFY_WORKERS must be positive, got %d", c.Notify.Workers)
	}
	return nil
}

// PostgresDSN returns DATABASE_URL when set, otherwise a DSN built from the parts
func (c *Config) PostgresDSN() string {
	if c.Store.DatabaseURL != "" {
		return c.Store.DatabaseURL
	}
	p := c.Store.Postgres
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC connect_timeout=10",
		p.Host, p.User, p.Password, p.Name, p.Port, sslMode)
}

// ReminderLocation resolves the time zone used for calendar-day arithmetic
func (c *Config) ReminderLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Reminders.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_TIMEZONE %q: %w", c.Reminders.Timezone, err)
	}
	return loc, nil
}

// ParseOffsets parses a comma separated list of day offsets, e.g. "5,2".
// Offsets are non-negative; 0 means the day the event starts. Duplicates are dropped.
func ParseOffsets(s string) ([]int, error) {
	var offsets []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid reminder offset %q", part)
		}
		if !seen[n] {
			seen[n] = true
			offsets = append(offsets, n)
		}
	}
	if len(offsets) == 0 {
		return nil, fmt.Errorf("no reminder offsets in %q", s)
	}
	return offsets, nil
}

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}

func setList(key string, dst *[]string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}
