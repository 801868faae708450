package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. Every command
// receives the words that followed its name.
type execIface interface {
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Add(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Done(ctx context.Context, args []string) error
	Undone(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
	Enable(ctx context.Context, args []string) error
	Unlock(ctx context.Context, args []string) error
	Lock(ctx context.Context, args []string) error
	Disable(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  (l)ist              list tasks
  show <id>           show a task with its notes
  add                 add a task
  edit <id>           edit a task (empty input keeps the current value)
  done <id>           mark a task done
  undone <id>         mark a task not done
  delete <id>         delete a task
  status              show the encryption state
  enable              register a passkey and encrypt every task
  unlock              unlock encrypted tasks with the passkey
  lock                forget the encryption key
  disable             decrypt every task and turn encryption off
  exit | quit         leave the program`

// runREPL reads commands from reader until EOF, "exit" or "quit". The
// prompt shows statusFn. Command errors are reported and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	commands := map[string]func(context.Context, []string) error{
		"l":       a.List,
		"list":    a.List,
		"show":    a.Show,
		"add":     a.Add,
		"edit":    a.Edit,
		"done":    a.Done,
		"undone":  a.Undone,
		"delete":  a.Delete,
		"status":  a.Status,
		"enable":  a.Enable,
		"unlock":  a.Unlock,
		"lock":    a.Lock,
		"disable": a.Disable,
	}

	for {
		fmt.Fprintf(out, "ts %s > ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			fmt.Fprintln(out)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			fmt.Fprintln(out, helpText)
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return
		default:
			run, ok := commands[cmd]
			if !ok {
				fmt.Fprintln(out, "Unknown command:", cmd)
				continue
			}
			if err := run(ctx, args); err != nil {
				if errors.Is(err, errUsage) {
					fmt.Fprintln(out, "Usage:", strings.TrimPrefix(err.Error(), errUsage.Error()+": "))
				} else {
					fmt.Fprintln(out, describeError(err))
				}
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}
