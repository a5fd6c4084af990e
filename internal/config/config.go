// Package config holds the rankrecon configuration: a YAML file with
// environment overrides and per-section defaults.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Default configuration values.
const (
	DefaultPath = "config.yml"

	defaultServiceName    = "rankrecon"
	defaultVersion        = "0.1.0"
	defaultLoggingLevel   = "info"
	defaultLoggingFmt     = "json"
	defaultSheetCacheDir  = "gsheet"
	defaultSheetTimeout   = 30 * time.Second
	defaultSheetAttempts  = 3
	defaultGSCRowLimit    = 100
	defaultGSCSearchType  = "web"
	defaultGSCRPS         = 5.0
	defaultGSCBurst       = 1
	defaultGSCConcurrency = 4
	defaultCacheAddress   = "localhost:6379"
	defaultCacheTTL       = 12 * time.Hour
	defaultCachePrefix    = "rankrecon:gsc"
	defaultDBHost         = "localhost"
	defaultDBPort         = 5432
	defaultDBName         = "rankrecon"
	defaultDBUser         = "postgres"
	defaultDBSSLMode      = "disable"
	defaultESURL          = "http://localhost:9200"
	defaultESIndex        = "rankrecon_report"
	defaultOutputDir      = "output"
	defaultDelimiter      = "\t"
	defaultRankArchiveDir = "data/ahrefs/rank_tracker"
	defaultRankMinGapDays = 10
	defaultServerPort     = 8095
)

// Config is the top-level configuration.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Logging       LoggingConfig       `yaml:"logging"`
	Sources       SourcesConfig       `yaml:"sources"`
	GSC           GSCConfig           `yaml:"gsc"`
	Cache         CacheConfig         `yaml:"cache"`
	Database      DatabaseConfig      `yaml:"database"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Output        OutputConfig        `yaml:"output"`
	Ranks         RanksConfig         `yaml:"ranks"`
	Server        ServerConfig        `yaml:"server"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
}

// ServiceConfig holds service-level settings.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Debug   bool   `env:"APP_DEBUG" yaml:"debug"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// SourcesConfig locates the spreadsheet-backed inputs. Each entry is either
// a Google Sheets edit URL or a local .csv/.xlsx path.
type SourcesConfig struct {
	InHouseClicks  string        `env:"RANKRECON_IN_HOUSE_SHEET"  yaml:"in_house_clicks"`
	SerpClixClicks string        `env:"RANKRECON_SERPCLIX_SHEET"  yaml:"serpclix_clicks"`
	FilterRules    string        `env:"RANKRECON_FILTER_SHEET"    yaml:"filter_rules"`
	Domains        string        `env:"RANKRECON_DOMAINS_SHEET"   yaml:"domains"`
	CacheDir       string        `env:"RANKRECON_SHEET_CACHE_DIR" yaml:"cache_dir"`
	Timeout        time.Duration `yaml:"timeout"`
	RetryAttempts  int           `yaml:"retry_attempts"`
}

// GSCConfig configures the Search Console client.
type GSCConfig struct {
	CredentialsFile   string  `env:"GSC_CREDENTIALS_FILE" yaml:"credentials_file"`
	RowLimit          int     `env:"GSC_ROW_LIMIT"        yaml:"row_limit"`
	SearchType        string  `yaml:"search_type"`
	RequestsPerSecond float64 `env:"GSC_RPS"              yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	Concurrency       int     `yaml:"concurrency"`
}

// CacheConfig configures the Redis-backed GSC response cache.
type CacheConfig struct {
	Enabled   bool          `env:"RANKRECON_CACHE_ENABLED" yaml:"enabled"`
	Address   string        `env:"REDIS_ADDRESS"           yaml:"address"`
	Password  string        `env:"REDIS_PASSWORD"          yaml:"password"`
	DB        int           `env:"REDIS_DB"                yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

// DatabaseConfig configures the PostgreSQL report store.
type DatabaseConfig struct {
	Enabled  bool   `env:"RANKRECON_DB_ENABLED" yaml:"enabled"`
	Host     string `env:"POSTGRES_HOST"        yaml:"host"`
	Port     int    `env:"POSTGRES_PORT"        yaml:"port"`
	User     string `env:"POSTGRES_USER"        yaml:"user"`
	Password string `env:"POSTGRES_PASSWORD"    yaml:"password"`
	Database string `env:"POSTGRES_DB"          yaml:"database"`
	SSLMode  string `env:"POSTGRES_SSLMODE"     yaml:"sslmode"`
}

// DSN returns the lib/pq connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// MigrateURL returns the postgres:// URL golang-migrate expects.
func (d *DatabaseConfig) MigrateURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Database,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// ElasticsearchConfig configures the optional report index sink.
type ElasticsearchConfig struct {
	Enabled  bool   `env:"RANKRECON_ES_ENABLED"   yaml:"enabled"`
	URL      string `env:"ELASTICSEARCH_URL"      yaml:"url"`
	Username string `env:"ELASTICSEARCH_USERNAME" yaml:"username"`
	Password string `env:"ELASTICSEARCH_PASSWORD" yaml:"password"`
	Index    string `yaml:"index"`
}

// OutputConfig configures the file sinks.
type OutputConfig struct {
	Dir       string `env:"RANKRECON_OUTPUT_DIR" yaml:"dir"`
	Delimiter string `yaml:"delimiter"`
	XLSX      bool   `yaml:"xlsx"`
}

// RanksConfig configures rank-tracker history handling.
type RanksConfig struct {
	ArchiveDir string   `env:"RANKRECON_RANK_ARCHIVE" yaml:"archive_dir"`
	TrackerIDs []string `env:"RANKRECON_TRACKER_IDS"  yaml:"tracker_ids"`
	MinGapDays int      `yaml:"min_gap_days"`
}

// ServerConfig configures the viewer API.
type ServerConfig struct {
	Port int `env:"RANKRECON_PORT" yaml:"port"`
}

// ScheduleConfig configures periodic report runs under `serve`.
type ScheduleConfig struct {
	Cron string `env:"RANKRECON_SCHEDULE" yaml:"cron"`
}

// Load reads the configuration at path.
func Load(path string) (*Config, error) {
	return LoadFile[Config](path, setDefaults)
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setLoggingDefaults(&cfg.Logging)
	setSourcesDefaults(&cfg.Sources)
	setGSCDefaults(&cfg.GSC)
	setCacheDefaults(&cfg.Cache)
	setDatabaseDefaults(&cfg.Database)
	setElasticsearchDefaults(&cfg.Elasticsearch)
	setOutputDefaults(&cfg.Output)
	setRanksDefaults(&cfg.Ranks)
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServerPort
	}
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLoggingLevel
	}
	if l.Format == "" {
		l.Format = defaultLoggingFmt
	}
}

func setSourcesDefaults(s *SourcesConfig) {
	if s.CacheDir == "" {
		s.CacheDir = defaultSheetCacheDir
	}
	if s.Timeout == 0 {
		s.Timeout = defaultSheetTimeout
	}
	if s.RetryAttempts == 0 {
		s.RetryAttempts = defaultSheetAttempts
	}
}

func setGSCDefaults(g *GSCConfig) {
	if g.RowLimit == 0 {
		g.RowLimit = defaultGSCRowLimit
	}
	if g.SearchType == "" {
		g.SearchType = defaultGSCSearchType
	}
	if g.RequestsPerSecond == 0 {
		g.RequestsPerSecond = defaultGSCRPS
	}
	if g.Burst == 0 {
		g.Burst = defaultGSCBurst
	}
	if g.Concurrency == 0 {
		g.Concurrency = defaultGSCConcurrency
	}
}

func setCacheDefaults(c *CacheConfig) {
	if c.Address == "" {
		c.Address = defaultCacheAddress
	}
	if c.TTL == 0 {
		c.TTL = defaultCacheTTL
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = defaultCachePrefix
	}
}

func setDatabaseDefaults(db *DatabaseConfig) {
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == 0 {
		db.Port = defaultDBPort
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.Database == "" {
		db.Database = defaultDBName
	}
	if db.SSLMode == "" {
		db.SSLMode = defaultDBSSLMode
	}
}

func setElasticsearchDefaults(es *ElasticsearchConfig) {
	if es.URL == "" {
		es.URL = defaultESURL
	}
	if es.Index == "" {
		es.Index = defaultESIndex
	}
}

func setOutputDefaults(o *OutputConfig) {
	if o.Dir == "" {
		o.Dir = defaultOutputDir
	}
	if o.Delimiter == "" {
		o.Delimiter = defaultDelimiter
	}
}

func setRanksDefaults(r *RanksConfig) {
	if r.ArchiveDir == "" {
		r.ArchiveDir = defaultRankArchiveDir
	}
	if r.MinGapDays == 0 {
		r.MinGapDays = defaultRankMinGapDays
	}
}
