// Package tasks provides the persistence layer for task records.
//
// # Overview
//
// Repository is the record store contract the rest of the client is written
// against: listing and reading a user's tasks, creating them, flipping the
// done flag, deleting, and Patch, which replaces a task's content fields
// (title, notes, tags, encrypted payload) in one atomic write. Patch is the
// only write the migration engine issues, so a record is always either fully
// plaintext or fully encrypted in the store.
//
// SQLiteRepository persists tasks in the local client database through a
// dbx.DBTX (either *sql.DB or *sql.Tx). Tags are stored as JSON text.
//
// Every method is scoped by user id; a task that exists but belongs to a
// different user is reported as common.ErrorNotFound.
//
// Typical Usage
//
//	repo := tasks.NewSQLiteRepository(db)
//	_ = repo.Create(ctx, task)
//	list, _ := repo.List(ctx, userID)
//	_ = repo.Patch(ctx, userID, id, models.EncryptedContent(envelope))
package tasks
