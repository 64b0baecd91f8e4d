// Package server assembles the NetGuard server: it opens the database, runs
// migrations, seeds the bootstrap SuperAdmin and runs the HTTP and gRPC
// endpoints until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/netguard/internal/logging"
	"github.com/dmitrijs2005/netguard/internal/server/auth"
	"github.com/dmitrijs2005/netguard/internal/server/config"
	"github.com/dmitrijs2005/netguard/internal/server/httpapi"
	"github.com/dmitrijs2005/netguard/internal/server/inference"
	"github.com/dmitrijs2005/netguard/internal/server/metrics"
	"github.com/dmitrijs2005/netguard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/netguard/internal/server/services"
	"github.com/dmitrijs2005/netguard/internal/server/traffic"

	gs "github.com/dmitrijs2005/netguard/internal/server/grpc"
)

type App struct {
	config           *config.Config
	logger           logging.Logger
	db               *sql.DB
	metrics          *metrics.Metrics
	model            *inference.Loader
	accountService   *services.AccountService
	sessionService   *services.SessionService
	detectionService *services.DetectionService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	hasher, err := auth.NewHasher(c.PasswordHashAlgorithm)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	mt := metrics.New(nil)
	model := inference.NewLoader(c.ModelPath, inference.S3Config{
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
	}, logger)

	as := services.NewAccountService(db, rm, hasher, c, logger)
	ss := services.NewSessionService(db, rm, as, c, mt, logger)
	ds := services.NewDetectionService(db, rm, model, traffic.NewGenerator(), mt, logger)

	app := &App{
		config:           c,
		logger:           logger,
		db:               db,
		metrics:          mt,
		model:            model,
		accountService:   as,
		sessionService:   ss,
		detectionService: ds,
	}

	if err := app.seedSuperAdmin(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return app, nil
}

func (app *App) seedSuperAdmin(ctx context.Context) error {
	c := app.config
	if c.AdminUserName == "" || c.AdminPassword == "" {
		return nil
	}

	created, err := app.accountService.EnsureSuperAdmin(ctx, c.AdminUserName, c.AdminEmail, c.AdminPassword)
	if err != nil {
		return fmt.Errorf("seeding superadmin: %w", err)
	}
	if created {
		app.logger.Info(ctx, "SuperAdmin account created", "username", c.AdminUserName)
		if c.AdminPassword == config.DefaultAdminPassword {
			app.logger.Warn(ctx, "SuperAdmin seeded with the default password, change it", "username", c.AdminUserName)
		}
	}
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.sessionService, app.detectionService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger,
		app.accountService, app.sessionService, app.detectionService, app.metrics, app.config.CORSOrigins)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	// a missing model is not fatal; predictions report it until it appears
	if _, err := app.model.Load(ctx); err != nil {
		app.logger.Warn(ctx, "model not loaded at start-up", "error", err)
	}

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
