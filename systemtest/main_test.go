package systemtest

import (
	"context"
	"testing"
	"time"

	internalhttp "github.com/EternisAI/panoptes/internal/api/http"
	"github.com/EternisAI/panoptes/internal/auth"
	"github.com/EternisAI/panoptes/internal/credentials"
	"github.com/EternisAI/panoptes/internal/db"
	"github.com/EternisAI/panoptes/internal/history"
	"github.com/EternisAI/panoptes/internal/monitor"
	"github.com/EternisAI/panoptes/internal/plume"
	"github.com/EternisAI/panoptes/internal/reports"
	"github.com/EternisAI/panoptes/internal/token"
	"github.com/EternisAI/panoptes/systemtest/postgres"
	"github.com/EternisAI/panoptes/systemtest/tests"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	dbUser     = "panoptes"
	dbPassword = "panoptes"
	dbName     = "panoptes"
	adminKey   = "system-admin-key"
)

func TestSystemIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("system tests need docker")
	}
	ctx := context.Background()

	pg, err := postgres.Start(ctx, dbUser, dbPassword, dbName)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pg.Terminate(context.Background())
	})

	dbCfg := db.Config{Url: pg.URL, Schema: "panoptes"}
	require.NoError(t, db.RunMigrations(ctx, dbCfg))
	pool, err := db.InitDB(ctx, dbCfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := history.NewPostgresStore(pool)
	plumeAPI := tests.NewFakePlume(t)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	internalhttp.SetupRoute(engine, newServices(t, plumeAPI, store))

	t.Run("HealthCheck", func(t *testing.T) { tests.TestHealthCheck(t, engine) })
	t.Run("PostgresHistory", func(t *testing.T) { tests.TestPostgresHistory(t, store) })
	t.Run("LocationFlow", func(t *testing.T) { tests.TestLocationFlow(t, engine, adminKey, plumeAPI) })
}

func newServices(t *testing.T, plumeAPI *tests.FakePlume, recorder history.Recorder) *internalhttp.Services {
	credStore := credentials.NewStore(credentials.Endpoints{
		SSOEndpoint: plumeAPI.SSO.URL,
		APIBase:     plumeAPI.API.URL + "/api/",
	})
	tokens := token.NewManager(credStore)
	client := plume.NewClient(tokens, credStore, plume.Config{ReauthOnReject: true})
	reportService := reports.NewService(client, reports.Config{})

	mon, err := monitor.New(reportService, recorder, monitor.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mon.Stop() })

	return &internalhttp.Services{
		Store:       credStore,
		Tokens:      tokens,
		Client:      client,
		Reports:     reportService,
		Monitor:     mon,
		History:     recorder,
		JWT:         auth.JWTConfig{Secret: "system-secret", TokenTTL: time.Hour},
		AdminAPIKey: adminKey,
	}
}
