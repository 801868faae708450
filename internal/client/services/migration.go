package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
	"github.com/dmitrijs2005/taskseal/internal/client/repositories/tasks"
	"github.com/dmitrijs2005/taskseal/internal/cryptox"
	"github.com/dmitrijs2005/taskseal/internal/logging"
)

// MigrationReport counts what a migration run did. Converted records are
// in the target mode; Skipped ones already were.
type MigrationReport struct {
	Total     int
	Converted int
	Skipped   int
}

// MigrationError reports the record a run stopped at. Records before it are
// in the target mode, the failing record and everything after it are not.
type MigrationError struct {
	RecordID string
	Report   MigrationReport
	Err      error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration stopped at record %s (%d of %d converted): %v",
		e.RecordID, e.Report.Converted, e.Report.Total, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// Migrator converts a user's records between plaintext and encrypted form.
//
// Records are processed one at a time and each conversion is a single
// Patch, so an interrupted run leaves every record fully in one mode or the
// other. Records already in the target mode are skipped, which makes both
// directions safe to re-run from scratch.
type Migrator struct {
	store  tasks.Repository
	logger logging.Logger
}

func NewMigrator(store tasks.Repository, logger logging.Logger) *Migrator {
	return &Migrator{store: store, logger: logger.With("module", "migration")}
}

// EncryptAll seals the content of every plaintext record under key.
func (m *Migrator) EncryptAll(ctx context.Context, key *cryptox.Key, records []models.Task) (MigrationReport, error) {
	return m.run(ctx, records, models.ModeEncrypted, func(t models.Task) (models.ContentPatch, error) {
		payload, err := cryptox.Seal(key, t.Payload())
		if err != nil {
			return models.ContentPatch{}, fmt.Errorf("encrypt: %w", err)
		}
		return models.EncryptedContent(payload), nil
	})
}

// DecryptAll restores the content of every encrypted record.
func (m *Migrator) DecryptAll(ctx context.Context, key *cryptox.Key, records []models.Task) (MigrationReport, error) {
	return m.run(ctx, records, models.ModePlaintext, func(t models.Task) (models.ContentPatch, error) {
		var p models.TaskPayload
		if err := cryptox.Open(key, t.EncryptedPayload, &p); err != nil {
			return models.ContentPatch{}, fmt.Errorf("decrypt: %w", err)
		}
		return models.PlaintextContent(p), nil
	})
}

func (m *Migrator) run(ctx context.Context, records []models.Task, target models.RecordMode,
	convert func(models.Task) (models.ContentPatch, error)) (MigrationReport, error) {

	report := MigrationReport{Total: len(records)}
	m.logger.Info(ctx, "migration started", "target", target.String(), "records", report.Total)

	for _, t := range records {
		if t.Mode() == target {
			report.Skipped++
			continue
		}

		patch, err := convert(t)
		if err == nil {
			err = m.store.Patch(ctx, t.UserID, t.ID, patch)
		}
		if err != nil {
			m.logger.Error(ctx, "migration aborted", "target", target.String(), "record_id", t.ID,
				"converted", report.Converted, "total", report.Total, "error", err)
			return report, &MigrationError{RecordID: t.ID, Report: report, Err: err}
		}
		report.Converted++
	}

	m.logger.Info(ctx, "migration finished", "target", target.String(),
		"converted", report.Converted, "skipped", report.Skipped)
	return report, nil
}
