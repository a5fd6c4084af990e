package config

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

func TestSetDefaults(t *testing.T) {
	t.Helper()

	cfg := &Config{}
	setDefaults(cfg)

	assertStringEqual(t, "service.name", defaultServiceName, cfg.Service.Name)
	assertStringEqual(t, "logging.level", defaultLoggingLevel, cfg.Logging.Level)
	assertStringEqual(t, "sources.cache_dir", defaultSheetCacheDir, cfg.Sources.CacheDir)
	assertIntEqual(t, "sources.retry_attempts", defaultSheetAttempts, cfg.Sources.RetryAttempts)
	assertIntEqual(t, "gsc.row_limit", defaultGSCRowLimit, cfg.GSC.RowLimit)
	assertStringEqual(t, "gsc.search_type", defaultGSCSearchType, cfg.GSC.SearchType)
	assertStringEqual(t, "cache.key_prefix", defaultCachePrefix, cfg.Cache.KeyPrefix)
	assertStringEqual(t, "database.host", defaultDBHost, cfg.Database.Host)
	assertIntEqual(t, "database.port", defaultDBPort, cfg.Database.Port)
	assertStringEqual(t, "elasticsearch.index", defaultESIndex, cfg.Elasticsearch.Index)
	assertStringEqual(t, "output.delimiter", "\t", cfg.Output.Delimiter)
	assertIntEqual(t, "ranks.min_gap_days", defaultRankMinGapDays, cfg.Ranks.MinGapDays)
	assertIntEqual(t, "server.port", defaultServerPort, cfg.Server.Port)

	if cfg.Cache.TTL != defaultCacheTTL {
		t.Errorf("cache.ttl: got %v, want %v", cfg.Cache.TTL, defaultCacheTTL)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	body := []byte(`
logging:
  level: debug
sources:
  in_house_clicks: https://docs.google.com/spreadsheets/d/abc/edit#gid=1
gsc:
  row_limit: 500
ranks:
  tracker_ids: ["4086622"]
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("GSC_ROW_LIMIT", "250")
	t.Setenv("RANKRECON_TRACKER_IDS", "1, 2")
	t.Setenv("RANKRECON_DB_ENABLED", "yes")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	assertStringEqual(t, "logging.level", "debug", cfg.Logging.Level)
	assertIntEqual(t, "gsc.row_limit", 250, cfg.GSC.RowLimit)
	assertIntEqual(t, "ranks.tracker_ids", 2, len(cfg.Ranks.TrackerIDs))
	assertStringEqual(t, "ranks.tracker_ids[1]", "2", cfg.Ranks.TrackerIDs[1])
	if !cfg.Database.Enabled {
		t.Error("database.enabled: want true from env")
	}
	assertStringEqual(t, "sources.cache_dir", defaultSheetCacheDir, cfg.Sources.CacheDir)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Helper()

	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertStringEqual(t, "output.dir", defaultOutputDir, cfg.Output.Dir)
}

func TestValidate(t *testing.T) {
	t.Helper()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "bad level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "logging.level: must be one of: debug, info, warn, error, fatal",
		},
		{
			name:    "multi char delimiter",
			mutate:  func(c *Config) { c.Output.Delimiter = "||" },
			wantErr: "output.delimiter: must be a single character",
		},
		{
			name: "database enabled with bad port",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Port = 70000
			},
			wantErr: "database.port: must be between 1 and 65535",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("error: got %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReport_RequiresSources(t *testing.T) {
	t.Helper()

	cfg := &Config{}
	setDefaults(cfg)

	err := cfg.ValidateReport()
	if err == nil || err.Error() != "sources.in_house_clicks: is required" {
		t.Fatalf("got %v", err)
	}
}

func TestValidateServe_BadCron(t *testing.T) {
	t.Helper()

	cfg := &Config{}
	setDefaults(cfg)
	cfg.Schedule.Cron = "every tuesday"

	if err := cfg.ValidateServe(); err == nil {
		t.Fatal("expected cron validation error")
	}
}

func TestDSN(t *testing.T) {
	t.Helper()

	db := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "r", SSLMode: "disable"}
	assertStringEqual(t, "dsn", "host=db port=5433 user=u password=p dbname=r sslmode=disable", db.DSN())
	assertStringEqual(t, "migrate url", "postgres://u:p@db:5433/r?sslmode=disable", db.MigrateURL())
}

func TestMigrateURL_EscapesCredentials(t *testing.T) {
	t.Helper()

	db := DatabaseConfig{Host: "db", Port: 5432, User: "rank user", Password: "p@ss:w/rd", Database: "r", SSLMode: "require"}
	u, err := url.Parse(db.MigrateURL())
	if err != nil {
		t.Fatalf("parse migrate url: %v", err)
	}

	pw, _ := u.User.Password()
	assertStringEqual(t, "user", "rank user", u.User.Username())
	assertStringEqual(t, "password", "p@ss:w/rd", pw)
	assertStringEqual(t, "host", "db:5432", u.Host)
	assertStringEqual(t, "path", "/r", u.Path)
	assertStringEqual(t, "sslmode", "require", u.Query().Get("sslmode"))
}

func assertStringEqual(t *testing.T, field, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}

func assertIntEqual(t *testing.T, field string, want, got int) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %d, want %d", field, got, want)
	}
}
