package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
)

var errUsage = errors.New("usage")

func oneID(args []string, cmd string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: %s <id>", errUsage, cmd)
	}
	return args[0], nil
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " #" + strings.Join(tags, " #")
}

func (a *App) printView(v models.TaskView) {
	mark := " "
	if v.Done {
		mark = "x"
	}
	a.printf("[%s] %s  %s%s\n", mark, v.ID, v.Title, formatTags(v.Tags))
}

func (a *App) List(ctx context.Context, args []string) error {
	views, err := a.tasks.List(ctx)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		a.println("No tasks yet.")
		return nil
	}
	locked := 0
	for _, v := range views {
		a.printView(v)
		if v.Locked {
			locked++
		}
	}
	if locked > 0 {
		a.printf("%d task(s) are locked; run 'unlock' to read them.\n", locked)
	}
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	id, err := oneID(args, "show")
	if err != nil {
		return err
	}
	v, err := a.tasks.Get(ctx, id)
	if err != nil {
		return err
	}
	a.printView(*v)
	if v.Notes != "" {
		a.println(v.Notes)
	}
	return nil
}

func (a *App) readPayload(current models.TaskView) (models.TaskPayload, error) {
	p := models.TaskPayload{Title: current.Title, Notes: current.Notes, Tags: current.Tags}

	title, err := GetSimpleText(a.reader, "Title"+hint(current.Title), a.out)
	if err != nil {
		return p, err
	}
	if title != "" {
		p.Title = title
	}

	notes, err := GetMultiline(a.reader, "Notes"+hint(current.Notes), a.out)
	if err != nil {
		return p, err
	}
	if notes != "" {
		p.Notes = notes
	}

	tags, err := GetSimpleText(a.reader, "Tags, comma separated"+hint(strings.Join(current.Tags, ", ")), a.out)
	if err != nil {
		return p, err
	}
	if tags != "" {
		p.Tags = ParseTags(tags)
	}
	return p, nil
}

func hint(current string) string {
	if current == "" {
		return ""
	}
	return fmt.Sprintf(" [%s]", current)
}

func (a *App) Add(ctx context.Context, args []string) error {
	p, err := a.readPayload(models.TaskView{})
	if err != nil {
		return err
	}
	if p.Title == "" {
		return errors.New("title is required")
	}
	id, err := a.tasks.Add(ctx, p)
	if err != nil {
		return err
	}
	a.printf("Added %s\n", id)
	return nil
}

func (a *App) Edit(ctx context.Context, args []string) error {
	id, err := oneID(args, "edit")
	if err != nil {
		return err
	}
	current, err := a.tasks.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Locked {
		return ErrLockedHint
	}
	p, err := a.readPayload(*current)
	if err != nil {
		return err
	}
	if err := a.tasks.Edit(ctx, id, p); err != nil {
		return err
	}
	a.printf("Updated %s\n", id)
	return nil
}

func (a *App) setDone(ctx context.Context, args []string, done bool, cmd string) error {
	id, err := oneID(args, cmd)
	if err != nil {
		return err
	}
	return a.tasks.SetDone(ctx, id, done)
}

func (a *App) Done(ctx context.Context, args []string) error {
	return a.setDone(ctx, args, true, "done")
}

func (a *App) Undone(ctx context.Context, args []string) error {
	return a.setDone(ctx, args, false, "undone")
}

func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := oneID(args, "delete")
	if err != nil {
		return err
	}
	if err := a.tasks.Delete(ctx, id); err != nil {
		return err
	}
	a.printf("Deleted %s\n", id)
	return nil
}
