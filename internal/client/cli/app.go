package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/taskseal/internal/client/client"
	"github.com/dmitrijs2005/taskseal/internal/client/config"
	"github.com/dmitrijs2005/taskseal/internal/client/services"
	"github.com/dmitrijs2005/taskseal/internal/keyring"
	"github.com/dmitrijs2005/taskseal/internal/logging"
	"github.com/dmitrijs2005/taskseal/internal/passkey"
	"github.com/dmitrijs2005/taskseal/internal/passkey/softkey"
)

const relyingPartyName = "TaskSeal"

type App struct {
	config     *config.Config
	logger     logging.Logger
	tasks      services.TaskService
	encryption *services.EncryptionManager
	reader     *bufio.Reader
	out        io.Writer
	closers    []io.Closer
}

// NewApp opens the local database and the record store selected by c and
// wires the services the REPL drives. Passkey credentials always live in the
// local database, whatever the store mode.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	db, err := client.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	stores, err := client.OpenStores(ctx, c.StoreMode, db, client.RemoteOptions{
		Address:     c.ServerEndpointAddr,
		AccessToken: c.AccessToken,
		Timeout:     c.RequestTimeout,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	authenticator := softkey.New(db, NewPINPrompt(os.Stdout), softkey.Options{PRF: true})
	deriver := passkey.NewDeriver(authenticator, c.RelyingPartyID, relyingPartyName, logger)

	a := newApp(c, logger, db, stores, deriver, bufio.NewReader(os.Stdin), os.Stdout)
	return a, nil
}

func newApp(c *config.Config, logger logging.Logger, db *sql.DB, stores *client.Stores,
	deriver services.KeyDeriver, reader *bufio.Reader, out io.Writer) *App {

	ring := keyring.New()
	enc := services.NewEncryptionManager(c.UserID, stores.Tasks, stores.Settings, stores.Pending, deriver, ring, logger)
	ts := services.NewTaskService(c.UserID, stores.Tasks, ring, enc, logger)

	return &App{
		config:     c,
		logger:     logger,
		tasks:      ts,
		encryption: enc,
		reader:     reader,
		out:        out,
		closers:    []io.Closer{stores, db},
	}
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// Run starts the REPL and blocks until the user exits or input ends. The
// session key is dropped and every store closed on the way out.
func (a *App) Run(ctx context.Context) {
	defer a.close(ctx)

	a.println("Welcome to TaskSeal (type 'help' for commands)")
	runREPL(ctx, a, func() string { return a.status(ctx) }, a.reader, a.out)
}

func (a *App) close(ctx context.Context) {
	_ = a.encryption.Lock(ctx)
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn(ctx, "close failed", "error", err)
		}
	}
}

func (a *App) status(ctx context.Context) string {
	state, err := a.encryption.Status(ctx)
	if err != nil {
		return fmt.Sprintf("(%s ?)", a.config.UserID)
	}
	return fmt.Sprintf("(%s %s)", a.config.UserID, state)
}
