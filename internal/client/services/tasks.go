package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
	"github.com/dmitrijs2005/taskseal/internal/client/repositories/tasks"
	"github.com/dmitrijs2005/taskseal/internal/cryptox"
	"github.com/dmitrijs2005/taskseal/internal/keyring"
	"github.com/dmitrijs2005/taskseal/internal/logging"
)

// TaskService is what the record-editing UI talks to. It encrypts and
// decrypts single records on the fly with the session key.
type TaskService interface {
	List(ctx context.Context) ([]models.TaskView, error)
	Get(ctx context.Context, id string) (*models.TaskView, error)
	Add(ctx context.Context, p models.TaskPayload) (string, error)
	Edit(ctx context.Context, id string, p models.TaskPayload) error
	SetDone(ctx context.Context, id string, done bool) error
	Delete(ctx context.Context, id string) error
}

// ContentGate decides the stored form of new content. It runs write with
// the current encryption flag and keeps the flag from changing until write
// returns. *EncryptionManager implements it.
type ContentGate interface {
	WriteContent(ctx context.Context, write func(enabled bool) error) error
}

type taskService struct {
	userID  string
	repo    tasks.Repository
	ring    *keyring.Ring
	gate    ContentGate
	logger  logging.Logger
}

func NewTaskService(userID string, repo tasks.Repository, ring *keyring.Ring, gate ContentGate, logger logging.Logger) TaskService {
	return &taskService{
		userID:  userID,
		repo:    repo,
		ring:    ring,
		gate:    gate,
		logger:  logger.With("module", "tasks"),
	}
}

// view opens an encrypted record when a key is held. Without a key the
// locked view is returned; a record that fails to open under the held key is
// an error.
func (s *taskService) view(t models.Task) (models.TaskView, error) {
	if t.Mode() == models.ModePlaintext {
		return models.PlainView(t, t.Payload()), nil
	}

	var p models.TaskPayload
	err := s.ring.Use(func(k *cryptox.Key) error {
		return cryptox.Open(k, t.EncryptedPayload, &p)
	})
	if IsLocked(err) {
		return models.LockedView(t), nil
	}
	if err != nil {
		return models.TaskView{}, fmt.Errorf("error decrypting task %s: %w", t.ID, err)
	}
	return models.PlainView(t, p), nil
}

func (s *taskService) List(ctx context.Context) ([]models.TaskView, error) {
	rows, err := s.repo.List(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("error listing tasks: %w", err)
	}

	result := make([]models.TaskView, 0, len(rows))
	for _, row := range rows {
		v, err := s.view(row)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

func (s *taskService) Get(ctx context.Context, id string) (*models.TaskView, error) {
	t, err := s.repo.GetByID(ctx, s.userID, id)
	if err != nil {
		return nil, fmt.Errorf("error retrieving task: %w", err)
	}
	v, err := s.view(*t)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// content builds the stored form of p: sealed when encryption is enabled,
// plaintext otherwise.
func (s *taskService) content(p models.TaskPayload, enabled bool) (models.ContentPatch, error) {
	if !enabled {
		return models.PlaintextContent(p), nil
	}

	var payload string
	err := s.ring.Use(func(k *cryptox.Key) error {
		var err error
		payload, err = cryptox.Seal(k, p)
		return err
	})
	if err != nil {
		return models.ContentPatch{}, err
	}
	return models.EncryptedContent(payload), nil
}

func (s *taskService) Add(ctx context.Context, p models.TaskPayload) (string, error) {
	t := &models.Task{UserID: s.userID}
	err := s.gate.WriteContent(ctx, func(enabled bool) error {
		c, err := s.content(p, enabled)
		if err != nil {
			return err
		}
		t.Title, t.Notes, t.Tags, t.EncryptedPayload = c.Title, c.Notes, c.Tags, c.EncryptedPayload
		if err := s.repo.Create(ctx, t); err != nil {
			return fmt.Errorf("saving error: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug(ctx, "task added", "task_id", t.ID, "mode", t.Mode().String())
	return t.ID, nil
}

func (s *taskService) Edit(ctx context.Context, id string, p models.TaskPayload) error {
	return s.gate.WriteContent(ctx, func(enabled bool) error {
		c, err := s.content(p, enabled)
		if err != nil {
			return err
		}
		if err := s.repo.Patch(ctx, s.userID, id, c); err != nil {
			return fmt.Errorf("error updating task: %w", err)
		}
		return nil
	})
}

func (s *taskService) SetDone(ctx context.Context, id string, done bool) error {
	if err := s.repo.SetDone(ctx, s.userID, id, done); err != nil {
		return fmt.Errorf("error updating task: %w", err)
	}
	return nil
}

func (s *taskService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, s.userID, id); err != nil {
		return fmt.Errorf("error deleting task: %w", err)
	}
	return nil
}
