// Package bootstrap assembles rankrecon components from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/rankrecon/internal/api"
	"github.com/jonesrussell/rankrecon/internal/config"
	"github.com/jonesrussell/rankrecon/internal/gsc"
	"github.com/jonesrussell/rankrecon/internal/logger"
	"github.com/jonesrussell/rankrecon/internal/pipeline"
	"github.com/jonesrussell/rankrecon/internal/ranktracker"
	"github.com/jonesrussell/rankrecon/internal/retry"
	"github.com/jonesrussell/rankrecon/internal/sheets"
	"github.com/jonesrussell/rankrecon/internal/sink"
	"github.com/jonesrussell/rankrecon/internal/storage"
	"github.com/jonesrussell/rankrecon/internal/telemetry"
)

// App holds the shared components of one command invocation.
type App struct {
	Config  *config.Config
	Log     logger.Logger
	Metrics *telemetry.Metrics

	DB    *sqlx.DB
	Store *storage.Store
	Redis *redis.Client
	ES    *es.Client
}

// SetupLogger builds the service logger tagged with the running command.
func SetupLogger(cfg *config.Config, command string) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(
		logger.String("service", cfg.Service.Name),
		logger.String("version", cfg.Service.Version),
		logger.String("command", command),
	), nil
}

// New connects every enabled backend. Close releases them.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	app := &App{
		Config:  cfg,
		Log:     log,
		Metrics: telemetry.New(),
	}

	db, err := SetupDatabase(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	if db != nil {
		app.DB = db
		app.Store = storage.NewStore(db)
	}

	app.Redis = SetupRedis(ctx, cfg.Cache, log)

	client, err := SetupElasticsearch(ctx, cfg.Elasticsearch, log)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("setup elasticsearch: %w", err)
	}
	app.ES = client

	return app, nil
}

// Close releases backend connections.
func (a *App) Close() {
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.Log.Warn("Error closing connections", logger.Error(err))
	}
	_ = a.Log.Sync()
}

// SheetLoader resolves the four configured inputs through the cached
// HTTP source.
func (a *App) SheetLoader() *sheets.Loader {
	src := a.Config.Sources
	rc := retry.DefaultConfig()
	if src.RetryAttempts > 0 {
		rc.MaxAttempts = src.RetryAttempts
	}
	web := &sheets.HTTPSource{
		Client:   sheets.NewHTTPClient(src.Timeout),
		CacheDir: src.CacheDir,
		Retry:    rc,
		Log:      a.Log,
	}
	return sheets.NewLoader(map[string]string{
		sheets.Domains:        src.Domains,
		sheets.FilterRules:    src.FilterRules,
		sheets.InHouseClicks:  src.InHouseClicks,
		sheets.SerpClixClicks: src.SerpClixClicks,
	}, web)
}

// SearchFetcher builds the Search Console fetcher, cached in Redis when
// a cache connection is up.
func (a *App) SearchFetcher(ctx context.Context) (*gsc.Fetcher, error) {
	g := a.Config.GSC
	client, err := gsc.NewClient(ctx, gsc.ClientConfig{
		CredentialsFile: g.CredentialsFile,
		RowLimit:        g.RowLimit,
		SearchType:      g.SearchType,
	})
	if err != nil {
		return nil, err
	}

	var q gsc.Querier = client
	if a.Redis != nil {
		q = gsc.NewCache(client, a.Redis, gsc.CacheConfig{
			TTL:       a.Config.Cache.TTL,
			KeyPrefix: a.Config.Cache.KeyPrefix,
			RowLimit:  g.RowLimit,
		}, a.Log, a.Metrics)
	}

	return gsc.NewFetcher(q, gsc.FetcherConfig{
		RequestsPerSecond: g.RequestsPerSecond,
		Burst:             g.Burst,
		Concurrency:       g.Concurrency,
	}, a.Log, a.Metrics), nil
}

// Archive returns the rank-tracker archive reader.
func (a *App) Archive() ranktracker.Archive {
	return ranktracker.Archive{Dir: a.Config.Ranks.ArchiveDir, MinGapDays: a.Config.Ranks.MinGapDays}
}

// FileSink returns the delimited-file sink for the output directory.
func (a *App) FileSink() *sink.File {
	return sink.NewFile(a.Config.Output.Dir, a.Config.Output.Delimiter)
}

// Sinks lists every enabled output, files first.
func (a *App) Sinks() []pipeline.Sink {
	out := []pipeline.Sink{a.FileSink()}
	if a.Config.Output.XLSX {
		out = append(out, &sink.XLSX{Dir: a.Config.Output.Dir})
	}
	if a.ES != nil {
		out = append(out, sink.NewElasticsearch(a.ES, a.Config.Elasticsearch.Index, a.Log))
	}
	if a.Store != nil {
		out = append(out, a.Store)
	}
	return out
}

// ReportPipeline wires a pipeline able to run full reports.
func (a *App) ReportPipeline(ctx context.Context) (*pipeline.Service, error) {
	fetcher, err := a.SearchFetcher(ctx)
	if err != nil {
		return nil, fmt.Errorf("setup search console: %w", err)
	}

	opts := pipeline.Options{
		Sheets:     a.SheetLoader(),
		Search:     fetcher,
		Ranks:      a.Archive(),
		TrackerIDs: a.Config.Ranks.TrackerIDs,
		Sinks:      a.Sinks(),
		Log:        a.Log,
		Metrics:    a.Metrics,
	}
	if a.Store != nil {
		opts.Recorder = a.Store
	}
	return pipeline.New(opts), nil
}

// ClicksPipeline wires a pipeline that only reads the click sheets.
func (a *App) ClicksPipeline() *pipeline.Service {
	return pipeline.New(pipeline.Options{
		Sheets:  a.SheetLoader(),
		Log:     a.Log,
		Metrics: a.Metrics,
	})
}

// RunReader returns the store as an api.RunReader, or nil without one.
func (a *App) RunReader() api.RunReader {
	if a.Store == nil {
		return nil
	}
	return a.Store
}

// HealthChecks checks each connected backend. The database is required;
// the cache and the index degrade.
func (a *App) HealthChecks() map[string]api.HealthChecker {
	checks := make(map[string]api.HealthChecker)
	if a.DB != nil {
		checks["database"] = api.PingChecker("Database", api.HealthStatusUnhealthy, a.DB.PingContext)
	}
	if a.Redis != nil {
		checks["redis"] = api.PingChecker("Redis", api.HealthStatusDegraded, func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		})
	}
	if a.ES != nil {
		checks["elasticsearch"] = api.PingChecker("Elasticsearch", api.HealthStatusDegraded, func(ctx context.Context) error {
			return pingElasticsearch(ctx, a.ES)
		})
	}
	return checks
}
