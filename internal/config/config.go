package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
)

// ErrMissingToken is returned when no bot token is configured.
var ErrMissingToken = errors.New("DISCORD_BOT_TOKEN not set")

// Store backends.
const (
	StoreBackendFile     = "file"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App          AppConfig
	Discord      DiscordConfig
	Tickets      TicketConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Admin        AdminConfig
	Notification NotificationConfig
	Report       ReportConfig
}

// AppConfig controls the keep-alive HTTP server.
type AppConfig struct {
	Name      string
	Env       string
	Host      string
	Port      string
	PortStart int
	PortEnd   int
	WebRoot   string
	Version   string
}

// DiscordConfig holds platform credentials and role identifiers.
type DiscordConfig struct {
	Token          string
	StaffRoleID    string
	OwnerRoleID    string
	CustomerRoleID string
	AutoPostPanels bool
}

// TicketConfig tunes the lifecycle manager.
type TicketConfig struct {
	CloseDelaySeconds int
	SupportCategory   string
	OrderCategory     string
	// EmbedDraftMinutes is how long an untouched embed draft is kept.
	EmbedDraftMinutes int
}

// StoreConfig selects the snapshot backend.
type StoreConfig struct {
	Backend string
	Path    string
	Name    string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	SnapshotKey string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AdminConfig defines admin API authentication parameters.
type AdminConfig struct {
	JWTSecret       string
	TokenTTLMinutes int
}

// NotificationConfig holds outbound notification endpoints.
type NotificationConfig struct {
	WebhookURL string
}

// ReportConfig schedules the community report job.
type ReportConfig struct {
	Schedule string
}

// Enabled reports whether the job should be scheduled. "off" disables it.
func (r ReportConfig) Enabled() bool {
	switch strings.ToLower(strings.TrimSpace(r.Schedule)) {
	case "", "off", "none", "disabled":
		return false
	}
	return true
}

// Load reads configuration from environment variables, applying defaults where possible,
// and validates it. envFiles are passed to godotenv; a missing file is not an error.
func Load(envFiles ...string) (*Config, error) {
	cfg, err := Read(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation. Tools that never connect to the
// platform, such as the admin token issuer, use it.
func Read(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:      getEnv("APP_NAME", "stk-ticket-bot"),
			Env:       getEnv("APP_ENV", "development"),
			Host:      getEnv("APP_HOST", "0.0.0.0"),
			Port:      os.Getenv("APP_PORT"),
			PortStart: getEnvAsInt("APP_PORT_RANGE_START", 5000),
			PortEnd:   getEnvAsInt("APP_PORT_RANGE_END", 5099),
			WebRoot:   getEnv("WEB_ROOT", "."),
			Version:   getEnv("APP_VERSION", "dev"),
		},
		Discord: DiscordConfig{
			Token:          strings.TrimSpace(os.Getenv("DISCORD_BOT_TOKEN")),
			StaffRoleID:    strings.TrimSpace(os.Getenv("STAFF_ROLE_ID")),
			OwnerRoleID:    strings.TrimSpace(os.Getenv("OWNER_ROLE_ID")),
			CustomerRoleID: strings.TrimSpace(os.Getenv("CUSTOMER_ROLE_ID")),
			AutoPostPanels: getEnvAsBool("AUTO_POST_PANELS", true),
		},
		Tickets: TicketConfig{
			CloseDelaySeconds: getEnvAsInt("TICKET_CLOSE_DELAY_SECONDS", 10),
			SupportCategory:   getEnv("TICKET_SUPPORT_CATEGORY", "Tickets"),
			OrderCategory:     getEnv("TICKET_ORDER_CATEGORY", "Orders"),
			EmbedDraftMinutes: getEnvAsInt("EMBED_DRAFT_TTL_MINUTES", 15),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", StoreBackendFile)),
			Path:    getEnv("STORE_PATH", "bot_data.json"),
			Name:    getEnv("STORE_NAME", "default"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          redisDB,
			SnapshotKey: getEnv("REDIS_SNAPSHOT_KEY", "ticketbot:snapshot"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Admin: AdminConfig{
			JWTSecret:       os.Getenv("ADMIN_JWT_SECRET"),
			TokenTTLMinutes: getEnvAsInt("ADMIN_TOKEN_TTL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Report: ReportConfig{
			Schedule: getEnv("REPORT_SCHEDULE", "@every 6h"),
		},
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return ErrMissingToken
	}
	roles := map[string]string{
		"STAFF_ROLE_ID":    c.Discord.StaffRoleID,
		"OWNER_ROLE_ID":    c.Discord.OwnerRoleID,
		"CUSTOMER_ROLE_ID": c.Discord.CustomerRoleID,
	}
	for key, id := range roles {
		if id == "" {
			continue
		}
		if _, err := snowflake.ParseString(id); err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, id, err)
		}
	}
	switch c.Store.Backend {
	case StoreBackendFile, StoreBackendRedis, StoreBackendPostgres:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Store.Backend == StoreBackendPostgres && c.Postgres.DSN == "" {
		return errors.New("STORE_BACKEND=postgres requires POSTGRES_DSN")
	}
	if c.App.PortStart > c.App.PortEnd {
		return fmt.Errorf("invalid port range %d-%d", c.App.PortStart, c.App.PortEnd)
	}
	return nil
}

// Addr returns the HTTP bind address when a fixed port is configured.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// CloseDelay returns how long a closed ticket channel stays readable.
func (t TicketConfig) CloseDelay() time.Duration {
	if t.CloseDelaySeconds < 0 {
		return 0
	}
	return time.Duration(t.CloseDelaySeconds) * time.Second
}

// EmbedDraftTTL returns the draft lifetime; zero means the builder default.
func (t TicketConfig) EmbedDraftTTL() time.Duration {
	if t.EmbedDraftMinutes <= 0 {
		return 0
	}
	return time.Duration(t.EmbedDraftMinutes) * time.Minute
}

// StaffRoles returns the configured staff and owner role IDs.
func (d DiscordConfig) StaffRoles() []string {
	roles := make([]string, 0, 2)
	for _, id := range []string{d.StaffRoleID, d.OwnerRoleID} {
		if id != "" {
			roles = append(roles, id)
		}
	}
	return roles
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
