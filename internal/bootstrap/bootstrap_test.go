package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/rankrecon/internal/bootstrap"
	"github.com/jonesrussell/rankrecon/internal/config"
	"github.com/jonesrussell/rankrecon/internal/logger"
	"github.com/jonesrussell/rankrecon/internal/sheets"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	cfg.Output.Dir = t.TempDir()
	return cfg
}

func TestSetupRedis(t *testing.T) {
	t.Helper()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	log := logger.NewNop()

	client := bootstrap.SetupRedis(context.Background(), config.CacheConfig{Enabled: true, Address: addr}, log)
	require.NotNil(t, client)
	require.NoError(t, client.Ping(context.Background()).Err())
	_ = client.Close()

	assert.Nil(t, bootstrap.SetupRedis(context.Background(), config.CacheConfig{Enabled: false, Address: addr}, log))

	mr.Close()
	assert.Nil(t, bootstrap.SetupRedis(context.Background(), config.CacheConfig{Enabled: true, Address: addr}, log))
}

func TestSetupDisabledBackends(t *testing.T) {
	t.Helper()

	log := logger.NewNop()
	db, err := bootstrap.SetupDatabase(context.Background(), config.DatabaseConfig{}, log)
	require.NoError(t, err)
	assert.Nil(t, db)

	client, err := bootstrap.SetupElasticsearch(context.Background(), config.ElasticsearchConfig{}, log)
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNew_Defaults(t *testing.T) {
	t.Helper()

	cfg := testConfig(t)
	app, err := bootstrap.New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Store)
	assert.Nil(t, app.RunReader())
	assert.Empty(t, app.HealthChecks())

	names := make([]string, 0)
	for _, s := range app.Sinks() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"file"}, names)

	cfg.Output.XLSX = true
	names = names[:0]
	for _, s := range app.Sinks() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"file", "xlsx"}, names)
}

func TestNew_WithCache(t *testing.T) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Cache.Enabled = true
	cfg.Cache.Address = mr.Addr()

	app, err := bootstrap.New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.Redis)
	checks := app.HealthChecks()
	require.Contains(t, checks, "redis")
	assert.Equal(t, "healthy", string(checks["redis"](context.Background()).Status))
}

func TestSheetLoader_LocalFiles(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "domains.csv")
	require.NoError(t, os.WriteFile(path, []byte("Domain,Country\nexample.com,US\n"), 0o600))

	cfg := testConfig(t)
	cfg.Sources.Domains = path

	app, err := bootstrap.New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer app.Close()

	loader := app.SheetLoader()
	tbl, err := loader.Fetch(context.Background(), sheets.Domains)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())

	_, err = loader.Fetch(context.Background(), sheets.FilterRules)
	require.ErrorIs(t, err, sheets.ErrUnknownSheet)
}

func TestReportPipeline_MissingCredentials(t *testing.T) {
	t.Helper()

	cfg := testConfig(t)
	cfg.GSC.CredentialsFile = filepath.Join(t.TempDir(), "absent.json")

	app, err := bootstrap.New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer app.Close()

	_, err = app.ReportPipeline(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gsc credentials")
}
