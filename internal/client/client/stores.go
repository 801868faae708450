package client

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/taskseal/internal/client/repositories/settings"
	"github.com/dmitrijs2005/taskseal/internal/client/repositories/tasks"
)

const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Stores bundles the repositories the services work with. Pending always
// lives in the local database, next to the passkey credentials.
type Stores struct {
	Tasks    tasks.Repository
	Settings settings.Repository
	Pending  settings.PendingRepository

	closer io.Closer
}

// Close releases the remote connection, if any.
func (s *Stores) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// RemoteOptions locate the remote record store.
type RemoteOptions struct {
	Address     string
	AccessToken string
	Timeout     time.Duration
}

// OpenStores returns the repositories for mode. Local mode keeps everything
// in db; remote mode keeps tasks and settings on the server.
func OpenStores(ctx context.Context, mode string, db *sql.DB, remote RemoteOptions) (*Stores, error) {
	switch mode {
	case ModeLocal, "":
		local := settings.NewSQLiteRepository(db)
		return &Stores{
			Tasks:    tasks.NewSQLiteRepository(db),
			Settings: local,
			Pending:  local,
		}, nil
	case ModeRemote:
		rs, err := NewRemoteStore(remote.Address, remote.AccessToken, remote.Timeout)
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", remote.Address, err)
		}
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("ping %s: %w", remote.Address, err)
		}
		return &Stores{Tasks: rs, Settings: rs, Pending: settings.NewSQLiteRepository(db), closer: rs}, nil
	default:
		return nil, fmt.Errorf("unknown store mode %q", mode)
	}
}
