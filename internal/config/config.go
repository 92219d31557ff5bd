package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"vn.io.arda/account/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Keycloak  KeycloakConfig  `mapstructure:"keycloak"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Admission AdmissionConfig `mapstructure:"admission"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	// AutoMigrate applies pending migrations on startup.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type KafkaConfig struct {
	Brokers            []string `mapstructure:"brokers"`
	ConsumerGroupID    string   `mapstructure:"consumer_group_id"`
	EventTopics        []string `mapstructure:"event_topics"`
	NotificationsTopic string   `mapstructure:"notifications_topic"`
}

type KeycloakConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// AdminRealm is the realm used to obtain admin access tokens (usually "master").
	AdminRealm string `mapstructure:"admin_realm"`
	// UserRealm holds the external media identities.
	UserRealm string `mapstructure:"user_realm"`
	// AdminClientID and AdminClientSecret are credentials for the admin API client.
	AdminClientID     string  `mapstructure:"admin_client_id"`
	AdminClientSecret string  `mapstructure:"admin_client_secret"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

type AuthConfig struct {
	// JWTSecret verifies HS256 bearer tokens; the "sub" claim is the requester id.
	JWTSecret string `mapstructure:"jwt_secret"`
}

type AdmissionConfig struct {
	MaxSystemAdmins int `mapstructure:"max_system_admins"`
}

type LifecycleConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Interval       time.Duration `mapstructure:"interval"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`

	MediaVerificationDays  int `mapstructure:"media_verification_days"`
	MediaDeletionDays      int `mapstructure:"media_deletion_days"`
	AdminAADDeletionDays   int `mapstructure:"admin_aad_deletion_days"`
	AdminSSODeletionDays   int `mapstructure:"admin_sso_deletion_days"`
	CourtSystemASignInDays int `mapstructure:"cft_sign_in_days"`
	CourtSystemADeleteDays int `mapstructure:"cft_deletion_days"`
	CourtSystemBSignInDays int `mapstructure:"crime_sign_in_days"`
	CourtSystemBDeleteDays int `mapstructure:"crime_deletion_days"`
}

// Load reads configuration from environment variables and config files.
// Environment variables override file values. Prefix: ACCOUNT_
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variables (e.g. ACCOUNT_DATABASE_HOST -> database.host)
	v.SetEnvPrefix("ACCOUNT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also support simple env vars without prefix for Docker Compose convenience
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("keycloak.base_url", "KEYCLOAK_URL")
	v.BindEnv("keycloak.admin_realm", "KEYCLOAK_ADMIN_REALM")
	v.BindEnv("keycloak.user_realm", "KEYCLOAK_USER_REALM")
	v.BindEnv("keycloak.admin_client_id", "KEYCLOAK_ADMIN_CLIENT_ID")
	v.BindEnv("keycloak.admin_client_secret", "KEYCLOAK_ADMIN_CLIENT_SECRET")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("admission.max_system_admins", "MAX_SYSTEM_ADMINS")
	v.BindEnv("server.port", "PORT")

	// Try loading config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // Not required

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	// KAFKA_BROKERS arrives as one comma-separated string.
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	t := domain.DefaultRetentionThresholds()

	v.SetDefault("server.port", "8091")
	v.SetDefault("server.env", "development")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "arda_account")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group_id", "arda-account-group")
	v.SetDefault("kafka.event_topics", []string{"account-events"})
	v.SetDefault("kafka.notifications_topic", "account-notifications")
	v.SetDefault("keycloak.base_url", "http://localhost:8081")
	v.SetDefault("keycloak.admin_realm", "master")
	v.SetDefault("keycloak.user_realm", "media")
	v.SetDefault("keycloak.admin_client_id", "arda-account-service")
	v.SetDefault("keycloak.requests_per_second", 10)
	v.SetDefault("admission.max_system_admins", 4)
	v.SetDefault("lifecycle.enabled", true)
	v.SetDefault("lifecycle.interval", "24h")
	v.SetDefault("lifecycle.max_concurrency", 10)
	v.SetDefault("lifecycle.media_verification_days", t.MediaVerificationDays)
	v.SetDefault("lifecycle.media_deletion_days", t.MediaDeletionDays)
	v.SetDefault("lifecycle.admin_aad_deletion_days", t.AdminAADDeletionDays)
	v.SetDefault("lifecycle.admin_sso_deletion_days", t.AdminSSODeletionDays)
	v.SetDefault("lifecycle.cft_sign_in_days", t.CourtSystemASignInDays)
	v.SetDefault("lifecycle.cft_deletion_days", t.CourtSystemADeleteDays)
	v.SetDefault("lifecycle.crime_sign_in_days", t.CourtSystemBSignInDays)
	v.SetDefault("lifecycle.crime_deletion_days", t.CourtSystemBDeleteDays)
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Admission.MaxSystemAdmins < 1 {
		return fmt.Errorf("admission.max_system_admins must be at least 1, got %d", c.Admission.MaxSystemAdmins)
	}
	if c.Lifecycle.Interval <= 0 {
		return fmt.Errorf("lifecycle.interval must be positive, got %s", c.Lifecycle.Interval)
	}
	t := c.Thresholds()
	for name, days := range map[string]int{
		"media_verification_days": t.MediaVerificationDays,
		"media_deletion_days":     t.MediaDeletionDays,
		"admin_aad_deletion_days": t.AdminAADDeletionDays,
		"admin_sso_deletion_days": t.AdminSSODeletionDays,
		"cft_sign_in_days":        t.CourtSystemASignInDays,
		"cft_deletion_days":       t.CourtSystemADeleteDays,
		"crime_sign_in_days":      t.CourtSystemBSignInDays,
		"crime_deletion_days":     t.CourtSystemBDeleteDays,
	} {
		if days <= 0 {
			return fmt.Errorf("lifecycle.%s must be positive, got %d", name, days)
		}
	}
	if t.MediaDeletionDays <= t.MediaVerificationDays {
		return fmt.Errorf("lifecycle.media_deletion_days (%d) must exceed media_verification_days (%d)",
			t.MediaDeletionDays, t.MediaVerificationDays)
	}
	return nil
}

// Thresholds returns the retention thresholds as an immutable value.
func (c *Config) Thresholds() domain.RetentionThresholds {
	l := c.Lifecycle
	return domain.RetentionThresholds{
		MediaVerificationDays:  l.MediaVerificationDays,
		MediaDeletionDays:      l.MediaDeletionDays,
		AdminAADDeletionDays:   l.AdminAADDeletionDays,
		AdminSSODeletionDays:   l.AdminSSODeletionDays,
		CourtSystemASignInDays: l.CourtSystemASignInDays,
		CourtSystemADeleteDays: l.CourtSystemADeleteDays,
		CourtSystemBSignInDays: l.CourtSystemBSignInDays,
		CourtSystemBDeleteDays: l.CourtSystemBDeleteDays,
	}
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" dbname=" + d.Name +
		" user=" + d.User +
		" password=" + d.Password +
		" sslmode=" + d.SSLMode
}

// URL returns the connection string in URL form, as the migrator needs it.
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
