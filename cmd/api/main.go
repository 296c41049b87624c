package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"orchestrator/internal/adapter/repo"
	"orchestrator/internal/auth"
	"orchestrator/internal/http/handlers"
	httpapi "orchestrator/internal/http/httpapi"
	"orchestrator/internal/infra"
	"orchestrator/internal/manifest"
	"orchestrator/internal/origin"
	"orchestrator/internal/projection"
	"orchestrator/internal/routing"
	"orchestrator/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	sqlRunner := infra.NewSQLRunner(dbpool, logger)

	outputStore, err := storage.NewFileStore(cfg.OutputStoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open output storage")
	}
	thumbsStore, err := storage.NewFileStore(cfg.ThumbsStoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open thumbnail storage")
	}
	logger.Info().
		Str("output", outputStore.BasePath()).
		Str("thumbs", thumbsStore.BasePath()).
		Msg("file storage ready")

	customers := repo.NewCustomerRepository(sqlRunner, cfg.CacheTTL)
	defer customers.Close()
	assets := repo.NewAssetRepository(sqlRunner)
	namedQueries := repo.NewNamedQueryRepository(sqlRunner, cfg.CacheTTL)
	defer namedQueries.Close()
	tokens := repo.NewAuthTokenRepository(sqlRunner, logger)
	originStrategies := repo.NewOriginStrategyRepository(sqlRunner, cfg.CacheTTL)
	defer originStrategies.Close()

	resolver := auth.NewResolver(tokens, logger)
	sessions := auth.NewSessionService(tokens, cfg.AuthTokenTTL, logger)

	thumbIndex := routing.NewIndex(thumbsStore, cfg.CacheTTL, logger)
	defer thumbIndex.Close()
	engine := routing.NewEngine(thumbIndex, cfg.CanResizeThumbs, logger)

	app, err := handlers.NewApp(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build handler container")
	}
	app.Customers = customers
	app.Assets = assets
	app.NamedQueries = namedQueries
	app.Resolver = resolver
	app.Sessions = sessions
	app.Engine = engine
	app.Manifests = manifest.NewBuilder(cfg.PublicBaseURL)
	app.Origins = origin.NewService(originStrategies, nil, logger)
	app.Projections = projection.NewService(outputStore, resolver, cfg.ControlFileStaleAfter, logger)
	app.PDFCreator = projection.NewPDFCreator(outputStore, cfg.PDFGeneratorURL, nil, logger)
	app.ZipCreator = projection.NewZipCreator(outputStore, thumbsStore, logger)

	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
