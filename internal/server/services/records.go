// Package services contains server-side business logic. RecordService
// scopes every record and settings operation to the authenticated user and
// rejects writes that would mix plaintext with ciphertext.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
	"github.com/dmitrijs2005/taskseal/internal/cryptox"
	"github.com/dmitrijs2005/taskseal/internal/dbx"
	"github.com/dmitrijs2005/taskseal/internal/logging"
	"github.com/dmitrijs2005/taskseal/internal/server/repositories/repomanager"
)

type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *RecordService {
	return &RecordService{db: db, repomanager: m, logger: logger.With("module", "record_service")}
}

func (s *RecordService) List(ctx context.Context, userID string) ([]models.Task, error) {
	return s.repomanager.Records(s.db).List(ctx, userID)
}

func (s *RecordService) Get(ctx context.Context, userID, id string) (*models.Task, error) {
	return s.repomanager.Records(s.db).GetByID(ctx, userID, id)
}

// Create stores t for userID, creating the user row on first use. Any user
// id carried by t is replaced.
func (s *RecordService) Create(ctx context.Context, userID string, t models.Task) (*models.Task, error) {
	if err := validateContent(t.Title, t.Notes, t.Tags, t.EncryptedPayload); err != nil {
		return nil, err
	}
	t.UserID = userID

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Ensure(ctx, userID); err != nil {
			return err
		}
		return s.repomanager.Records(tx).Create(ctx, &t)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "record created", "user_id", userID, "record_id", t.ID, "mode", t.Mode().String())
	return &t, nil
}

func (s *RecordService) Patch(ctx context.Context, userID, id string, p models.ContentPatch) error {
	if err := validateContent(p.Title, p.Notes, p.Tags, p.EncryptedPayload); err != nil {
		return err
	}
	return s.repomanager.Records(s.db).Patch(ctx, userID, id, p)
}

func (s *RecordService) SetDone(ctx context.Context, userID, id string, done bool) error {
	return s.repomanager.Records(s.db).SetDone(ctx, userID, id, done)
}

func (s *RecordService) Delete(ctx context.Context, userID, id string) error {
	return s.repomanager.Records(s.db).Delete(ctx, userID, id)
}

// Settings returns the user's encryption settings or nil when encryption is
// off.
func (s *RecordService) Settings(ctx context.Context, userID string) (*models.EncryptionSettings, error) {
	return s.repomanager.Users(s.db).GetSettings(ctx, userID)
}

// SetSettings turns encryption on for userID. The key check must be an
// envelope; the server cannot verify it further.
func (s *RecordService) SetSettings(ctx context.Context, userID, credentialID, keyCheck string) error {
	if credentialID == "" {
		return fmt.Errorf("%w: empty credential id", ErrInvalidRecord)
	}
	if _, err := cryptox.DecodeEnvelope(keyCheck); err != nil {
		return fmt.Errorf("%w: key check: %v", ErrInvalidRecord, err)
	}
	if err := s.repomanager.Users(s.db).SetSettings(ctx, userID, credentialID, keyCheck); err != nil {
		return err
	}
	s.logger.Info(ctx, "encryption enabled", "user_id", userID)
	return nil
}

func (s *RecordService) ClearSettings(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).ClearSettings(ctx, userID); err != nil {
		return err
	}
	s.logger.Info(ctx, "encryption disabled", "user_id", userID)
	return nil
}

func validateContent(title, notes string, tags []string, payload string) error {
	if payload == "" {
		return nil
	}
	if _, err := cryptox.DecodeEnvelope(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if title != models.EncryptedTitlePlaceholder || notes != "" || len(tags) != 0 {
		return fmt.Errorf("%w: encrypted record carries plaintext content", ErrInvalidRecord)
	}
	return nil
}
