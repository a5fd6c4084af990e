package bootstrap

import (
	"context"
	"fmt"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/rankrecon/internal/config"
	"github.com/jonesrussell/rankrecon/internal/logger"
	"github.com/jonesrussell/rankrecon/internal/retry"
	"github.com/jonesrussell/rankrecon/internal/storage"
)

const (
	redisConnectTimeout = 5 * time.Second
	esPingTimeout       = 10 * time.Second
)

// SetupDatabase connects to PostgreSQL. It returns nil when the report
// store is disabled.
func SetupDatabase(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*sqlx.DB, error) {
	if !cfg.Enabled {
		log.Debug("Report store disabled")
		return nil, nil
	}

	log.Info("Connecting to PostgreSQL database",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("database", cfg.Database),
	)
	db, err := storage.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("Connected to PostgreSQL database")
	return db, nil
}

// SetupRedis connects to Redis for the analytics cache. It returns nil
// when the cache is disabled or unreachable; the run then goes uncached.
func SetupRedis(ctx context.Context, cfg config.CacheConfig, log logger.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		log.Warn("Redis unavailable, analytics cache disabled",
			logger.String("address", cfg.Address),
			logger.Error(err),
		)
		return nil
	}

	log.Info("Connected to Redis", logger.String("address", cfg.Address), logger.Int("db", cfg.DB))
	return client
}

// SetupElasticsearch creates the report index client and waits for the
// cluster to answer a ping. It returns nil when indexing is disabled.
func SetupElasticsearch(ctx context.Context, cfg config.ElasticsearchConfig, log logger.Logger) (*es.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client, err := es.NewClient(es.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, esPingTimeout)
	defer cancel()
	err = retry.Do(pingCtx, retry.DefaultConfig(), func() error {
		return pingElasticsearch(pingCtx, client)
	})
	if err != nil {
		return nil, fmt.Errorf("ping elasticsearch %s: %w", cfg.URL, err)
	}

	log.Info("Connected to Elasticsearch", logger.String("url", cfg.URL), logger.String("index", cfg.Index))
	return client, nil
}

func pingElasticsearch(ctx context.Context, client *es.Client) error {
	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: status %d", res.StatusCode)
	}
	return nil
}
