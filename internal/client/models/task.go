// Package models defines the client-side records TaskSeal works with: tasks
// in either plaintext or encrypted form, and the per-user encryption
// settings.
package models

import (
	"slices"
	"time"
)

// RecordMode tells whether a task's content is stored in the clear or
// sealed in an envelope.
type RecordMode int

const (
	ModePlaintext RecordMode = iota
	ModeEncrypted
)

func (m RecordMode) String() string {
	switch m {
	case ModePlaintext:
		return "plaintext"
	case ModeEncrypted:
		return "encrypted"
	default:
		return "unknown"
	}
}

const (
	// EncryptedTitlePlaceholder replaces the title of an encrypted task in
	// the store.
	EncryptedTitlePlaceholder = "[encrypted]"

	// LockedTitle is what readers get for an encrypted task while no key is
	// available.
	LockedTitle = "🔒 locked"
)

// Task is a task record as kept by the record store.
//
// Title, Notes and Tags hold the content in plaintext mode and placeholders
// in encrypted mode; EncryptedPayload holds the envelope over TaskPayload in
// encrypted mode and is empty otherwise.
type Task struct {
	ID               string
	UserID           string
	Title            string
	Notes            string
	Tags             []string
	EncryptedPayload string
	Done             bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Mode reports how the task's content is stored.
func (t Task) Mode() RecordMode {
	if t.EncryptedPayload != "" {
		return ModeEncrypted
	}
	return ModePlaintext
}

// Payload returns the task's plaintext content. Only meaningful in
// plaintext mode.
func (t Task) Payload() TaskPayload {
	return TaskPayload{Title: t.Title, Notes: t.Notes, Tags: normalizeTags(t.Tags)}
}

// TaskPayload is the part of a task that is encrypted.
type TaskPayload struct {
	Title string   `json:"title"`
	Notes string   `json:"notes"`
	Tags  []string `json:"tags"`
}

// ContentPatch replaces a task's title, notes, tags and encrypted payload in
// one atomic store write. Other task fields are left alone.
type ContentPatch struct {
	Title            string
	Notes            string
	Tags             []string
	EncryptedPayload string
}

// EncryptedContent is the patch that puts a task into encrypted mode: the
// plaintext fields become placeholders and payload is the sealed envelope.
func EncryptedContent(payload string) ContentPatch {
	return ContentPatch{Title: EncryptedTitlePlaceholder, Tags: []string{}, EncryptedPayload: payload}
}

// PlaintextContent is the patch that puts a task into plaintext mode.
func PlaintextContent(p TaskPayload) ContentPatch {
	return ContentPatch{Title: p.Title, Notes: p.Notes, Tags: normalizeTags(p.Tags)}
}

// TaskView is a task as shown to the user.
type TaskView struct {
	ID     string
	Title  string
	Notes  string
	Tags   []string
	Done   bool
	Locked bool
}

// LockedView is the view of an encrypted task that cannot be opened yet.
func LockedView(t Task) TaskView {
	return TaskView{ID: t.ID, Title: LockedTitle, Tags: []string{}, Done: t.Done, Locked: true}
}

// PlainView is the view of a task with known content.
func PlainView(t Task, p TaskPayload) TaskView {
	return TaskView{ID: t.ID, Title: p.Title, Notes: p.Notes, Tags: normalizeTags(p.Tags), Done: t.Done}
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return slices.Clone(tags)
}
