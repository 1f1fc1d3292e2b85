package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coredatabase "github.com/fieldops/spendbot/core/database"
	"github.com/fieldops/spendbot/core/logger"
)

// ServerConfig specifies the HTTP listener for the inbound webhook.
type ServerConfig struct {
	Listen string `yaml:"listen" envconfig:"SERVER_LISTEN"`
	Port   int    `yaml:"port" envconfig:"SERVER_PORT"`
}

// TwilioConfig holds messaging channel credentials and reply behaviour.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid" envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `yaml:"auth_token" envconfig:"TWILIO_AUTH_TOKEN"`
	From       string `yaml:"from" envconfig:"TWILIO_WHATSAPP_NUMBER"`
	// ReplyMode selects how webhook replies are delivered; see ReplyModeTwiML
	// and ReplyModeREST.
	ReplyMode         string `yaml:"reply_mode" envconfig:"TWILIO_REPLY_MODE"`
	ValidateSignature bool   `yaml:"validate_signature" envconfig:"TWILIO_VALIDATE_SIGNATURE"`
	// PublicURL is the externally visible webhook URL; required when
	// signature validation is on since Twilio signs the full URL.
	PublicURL string `yaml:"public_url" envconfig:"TWILIO_PUBLIC_URL"`
}

// SheetsConfig holds Google Sheets ledger backend settings.
type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file" envconfig:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"GOOGLE_SHEET_ID"`
	Range           string `yaml:"range" envconfig:"GOOGLE_SHEET_RANGE"`
}

// LedgerConfig selects and configures the ledger storage backend.
type LedgerConfig struct {
	Backend  string              `yaml:"backend" envconfig:"LEDGER_BACKEND"`
	Sheets   SheetsConfig        `yaml:"sheets"`
	Database coredatabase.Config `yaml:"database"`
}

// TelegramConfig enables the optional Telegram transport when a token is set.
type TelegramConfig struct {
	Token                  string `yaml:"token" envconfig:"BOT_TOKEN"`
	LongPollTimeoutSeconds int    `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	File        string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// RateLimitConfig holds the minimum interval between messages from one sender.
type RateLimitConfig struct {
	IntervalMS int `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
}

// SessionConfig controls the idle session sweeper. IdleTTLMinutes of zero
// disables eviction.
type SessionConfig struct {
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds" envconfig:"SESSION_SWEEP_INTERVAL_SECONDS"`
	IdleTTLMinutes       int `yaml:"idle_ttl_minutes" envconfig:"SESSION_IDLE_TTL_MINUTES"`
}

const (
	// ReplyModeTwiML answers the webhook with an inline TwiML document.
	ReplyModeTwiML = "twiml"
	// ReplyModeREST answers with an empty TwiML document and sends the reply
	// through the Twilio REST API from the configured sending address.
	ReplyModeREST = "rest"
)

const (
	// BackendSheets appends rows to a Google Sheets spreadsheet.
	BackendSheets = "sheets"
	// BackendPostgres appends rows to a Postgres table.
	BackendPostgres = "postgres"
	// BackendMemory keeps rows in process memory, for tests and development.
	BackendMemory = "memory"
)

// Config aggregates all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Twilio    TwilioConfig    `yaml:"twilio"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Session   SessionConfig   `yaml:"session"`
}

// LoggerSettings converts the logging section for core/logger.Init.
func (c *Config) LoggerSettings() logger.Settings {
	return logger.Settings{
		Level:       c.Logging.Level,
		Format:      c.Logging.Format,
		KeysOrder:   c.Logging.KeysOrder,
		DebugSample: c.Logging.DebugSample,
		Dir:         c.Logging.Dir,
		File:        c.Logging.File,
		Profile:     c.Logging.Profile,
	}
}

// Load reads configuration from an optional .env file, a YAML file, and
// environment variables, in that order of increasing precedence.
func Load(path string) (*Config, error) {
	// Missing .env is fine; env vars may come from the environment itself.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Port < 0 {
		return fmt.Errorf("server.port must be > 0")
	}

	if strings.TrimSpace(cfg.Twilio.AccountSID) == "" {
		return fmt.Errorf("twilio.account_sid is required")
	}
	if strings.TrimSpace(cfg.Twilio.AuthToken) == "" {
		return fmt.Errorf("twilio.auth_token is required")
	}
	if strings.TrimSpace(cfg.Twilio.From) == "" {
		return fmt.Errorf("twilio.from is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Twilio.ReplyMode))
	if rm == "" {
		rm = ReplyModeTwiML
	}
	switch rm {
	case ReplyModeTwiML, ReplyModeREST:
	default:
		return fmt.Errorf("invalid twilio.reply_mode %q; allowed: twiml, rest", cfg.Twilio.ReplyMode)
	}
	cfg.Twilio.ReplyMode = rm

	if cfg.Twilio.ValidateSignature && strings.TrimSpace(cfg.Twilio.PublicURL) == "" {
		return fmt.Errorf("twilio.public_url is required when twilio.validate_signature is on")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Ledger.Backend))
	if backend == "" {
		backend = BackendSheets
	}
	switch backend {
	case BackendSheets:
		if strings.TrimSpace(cfg.Ledger.Sheets.CredentialsFile) == "" {
			return fmt.Errorf("ledger.sheets.credentials_file is required when ledger.backend is 'sheets'")
		}
		if strings.TrimSpace(cfg.Ledger.Sheets.SpreadsheetID) == "" {
			return fmt.Errorf("ledger.sheets.spreadsheet_id is required when ledger.backend is 'sheets'")
		}
		if strings.TrimSpace(cfg.Ledger.Sheets.Range) == "" {
			cfg.Ledger.Sheets.Range = "Sheet1!A:E"
		}
	case BackendPostgres:
		db := &cfg.Ledger.Database
		if strings.TrimSpace(db.Host) == "" || strings.TrimSpace(db.Name) == "" || strings.TrimSpace(db.User) == "" {
			return fmt.Errorf("ledger.database host/user/name are required when ledger.backend is 'postgres'")
		}
		if strings.TrimSpace(db.Port) == "" {
			db.Port = "5432"
		}
		if strings.TrimSpace(db.SSLMode) == "" {
			db.SSLMode = "disable"
		}
		if db.MaxConnections <= 0 {
			db.MaxConnections = 4
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid ledger.backend %q; allowed: sheets, postgres, memory", cfg.Ledger.Backend)
	}
	cfg.Ledger.Backend = backend

	if cfg.Telegram.LongPollTimeoutSeconds < 0 {
		return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
	}
	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}

	if cfg.Session.SweepIntervalSeconds <= 0 {
		cfg.Session.SweepIntervalSeconds = 60
	}
	if cfg.Session.IdleTTLMinutes < 0 {
		return fmt.Errorf("session.idle_ttl_minutes must be >= 0")
	}

	return nil
}
