// Package server initializes and runs the TaskSeal record server: it opens
// PostgreSQL, applies migrations, and serves the RecordStore gRPC service
// until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/taskseal/internal/logging"
	"github.com/dmitrijs2005/taskseal/internal/server/auth"
	"github.com/dmitrijs2005/taskseal/internal/server/config"
	"github.com/dmitrijs2005/taskseal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskseal/internal/server/services"

	gs "github.com/dmitrijs2005/taskseal/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	records *services.RecordService
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	rs := services.NewRecordService(db, rm, logger)

	return &App{config: c, logger: logger, db: db, records: rs}, nil
}

// IssueToken signs an access token for c.IssueTokenFor.
func IssueToken(c *config.Config) (string, error) {
	if c.IssueTokenFor == "" {
		return "", fmt.Errorf("no user id to issue a token for")
	}
	return auth.GenerateToken(c.IssueTokenFor, []byte(c.SecretKey), c.AccessTokenValidityDuration)
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

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.records, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the database.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
