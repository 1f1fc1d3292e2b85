package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Twilio.AccountSID = "AC123"
	cfg.Twilio.AuthToken = "secret"
	cfg.Twilio.From = "whatsapp:+14155238886"
	cfg.Ledger.Backend = BackendMemory
	return cfg
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Server.Listen != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults = %s:%d", cfg.Server.Listen, cfg.Server.Port)
	}
	if cfg.Twilio.ReplyMode != ReplyModeTwiML {
		t.Errorf("reply mode default = %q", cfg.Twilio.ReplyMode)
	}
	if cfg.Session.SweepIntervalSeconds != 60 {
		t.Errorf("sweep interval default = %d", cfg.Session.SweepIntervalSeconds)
	}
}

func TestNormalizeSheetsDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Ledger.Backend = BackendSheets
	cfg.Ledger.Sheets.CredentialsFile = "creds.json"
	cfg.Ledger.Sheets.SpreadsheetID = "sheet-id"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Ledger.Sheets.Range != "Sheet1!A:E" {
		t.Errorf("range default = %q", cfg.Ledger.Sheets.Range)
	}
}

func TestNormalizePostgresDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Ledger.Backend = BackendPostgres
	cfg.Ledger.Database.Host = "localhost"
	cfg.Ledger.Database.User = "spendbot"
	cfg.Ledger.Database.Name = "spendbot"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	db := cfg.Ledger.Database
	if db.Port != "5432" || db.SSLMode != "disable" || db.MaxConnections != 4 {
		t.Errorf("database defaults = %+v", db)
	}
}

func TestNormalizeRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing account sid", func(c *Config) { c.Twilio.AccountSID = "" }, "twilio.account_sid"},
		{"missing auth token", func(c *Config) { c.Twilio.AuthToken = "" }, "twilio.auth_token"},
		{"missing from", func(c *Config) { c.Twilio.From = "" }, "twilio.from"},
		{"bad reply mode", func(c *Config) { c.Twilio.ReplyMode = "carrier-pigeon" }, "twilio.reply_mode"},
		{"validate without url", func(c *Config) { c.Twilio.ValidateSignature = true }, "twilio.public_url"},
		{"bad backend", func(c *Config) { c.Ledger.Backend = "oracle" }, "ledger.backend"},
		{"sheets without creds", func(c *Config) { c.Ledger.Backend = BackendSheets }, "credentials_file"},
		{"postgres without host", func(c *Config) { c.Ledger.Backend = BackendPostgres }, "ledger.database"},
		{"negative rate limit", func(c *Config) { c.RateLimit.IntervalMS = -1 }, "rate_limit.interval_ms"},
		{"negative idle ttl", func(c *Config) { c.Session.IdleTTLMinutes = -1 }, "session.idle_ttl_minutes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := Normalize(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestNormalizeLowercasesSelections(t *testing.T) {
	cfg := validConfig()
	cfg.Twilio.ReplyMode = "REST"
	cfg.Ledger.Backend = "Memory"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Twilio.ReplyMode != ReplyModeREST {
		t.Errorf("reply mode = %q", cfg.Twilio.ReplyMode)
	}
	if cfg.Ledger.Backend != BackendMemory {
		t.Errorf("backend = %q", cfg.Ledger.Backend)
	}
}
