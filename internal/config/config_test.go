package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ENVIRONMENT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %q, want sqlite", cfg.DatabaseType)
	}
	if cfg.InvitationTTL != 7*24*time.Hour {
		t.Errorf("InvitationTTL = %v, want 168h", cfg.InvitationTTL)
	}
	if cfg.JWTSecret == "" {
		t.Error("expected a development JWT secret to be filled in")
	}
	if cfg.DBMaxOpenConns != 25 || cfg.DBConnMaxLifetime != 5*time.Minute {
		t.Errorf("pool = %d/%v, want 25/5m", cfg.DBMaxOpenConns, cfg.DBConnMaxLifetime)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
port = "9000"
database_type = "postgres"
database_url = "postgres://file"
access_token_ttl = "30m"
allowed_origins = ["https://file.example"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "9000" {
		t.Errorf("ServerPort = %q, want value from file", cfg.ServerPort)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("DatabaseType = %q, want postgres", cfg.DatabaseType)
	}
	if cfg.DatabaseURL != "postgres://env" {
		t.Errorf("DatabaseURL = %q, environment should win over file", cfg.DatabaseURL)
	}
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want 30m", cfg.AccessTokenTTL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://file.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "unknown database",
			modify:  func(c *Config) { c.DatabaseType = "oracle" },
			wantErr: true,
		},
		{
			name:    "mongo without uri",
			modify:  func(c *Config) { c.DatabaseType = "mongo" },
			wantErr: true,
		},
		{
			name: "mongo with uri",
			modify: func(c *Config) {
				c.DatabaseType = "mongo"
				c.MongoURI = "mongodb://localhost:27017"
			},
			wantErr: false,
		},
		{
			name:    "production without secret",
			modify:  func(c *Config) { c.Environment = "production" },
			wantErr: true,
		},
		{
			name:    "negative pool size",
			modify:  func(c *Config) { c.DBMaxOpenConns = -1 },
			wantErr: true,
		},
		{
			name:    "zero invitation lifetime",
			modify:  func(c *Config) { c.InvitationTTL = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example, ,https://b.example ")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("splitList() = %v", got)
	}
}

func TestUsesMongo(t *testing.T) {
	for dbType, want := range map[string]bool{"mongo": true, "MongoDB": true, "sqlite": false, "postgres": false} {
		cfg := &Config{DatabaseType: dbType}
		if got := cfg.UsesMongo(); got != want {
			t.Errorf("UsesMongo(%q) = %v, want %v", dbType, got, want)
		}
	}
}
