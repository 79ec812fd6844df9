// Command tycoonctl inspects and maintains the persisted save outside the
// server: start a game, print it, take and restore backups, archive it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"tycooncore/internal/archive"
	"tycooncore/internal/config"
	"tycooncore/internal/engine"
	"tycooncore/internal/kv"
	"tycooncore/internal/savestore"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Getenv, os.Stdout, os.Stderr)
	exitFunc(code)
}

const usage = `usage: tycoonctl <command> [flags]

commands:
  new -player NAME   start a new game, replacing the active save
  show               print the active save as JSON
  report             print this period's profit statement
  advance            close the current period
  backup             copy the active save to a backup key
  backups            list backup keys
  restore -key KEY   overwrite the active save with a backup
  reset              delete the active save (backups are kept)
  archive            export the active save to the snapshot archive
`

func cli(args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, rest := args[0], args[1:]
	if !commands[cmd] {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n%s", cmd, usage)
		return 2
	}
	fs := flag.NewFlagSet("tycoonctl "+cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	player := fs.String("player", "", "player name for new")
	key := fs.String("key", "", "backup key for restore")
	if err := fs.Parse(rest); err != nil {
		return 2
	}

	cfg, err := config.LoadFrom(getenv)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	ctx := context.Background()
	svc, closeFn, err := open(ctx, cfg, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "open: %v\n", err)
		return 1
	}
	defer closeFn()

	out, err := dispatch(ctx, svc, cmd, *player, *key)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 1
	}
	if out == nil {
		return 0
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return 1
	}
	return 0
}

var commands = map[string]bool{
	"new": true, "show": true, "report": true, "advance": true, "backup": true,
	"backups": true, "restore": true, "reset": true, "archive": true,
}

func open(ctx context.Context, cfg config.Config, stderr io.Writer) (*engine.Service, func(), error) {
	store, err := kv.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	arch, err := archive.Open(ctx, cfg.Archive)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	opts := []savestore.Option{savestore.WithKey(cfg.SaveKey), savestore.WithBalance(cfg.Balance)}
	if arch != nil {
		opts = append(opts, savestore.WithArchive(arch))
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	svc, err := engine.New(savestore.New(store, opts...), engine.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return svc, func() { _ = store.Close() }, nil
}

func dispatch(ctx context.Context, svc *engine.Service, cmd, player, key string) (any, error) {
	switch cmd {
	case "new", "backups", "reset", "restore":
	default:
		if _, ok := svc.Load(ctx); !ok {
			return nil, errors.New("no readable save")
		}
	}
	switch cmd {
	case "new":
		return svc.NewGame(ctx, player)
	case "show":
		save, _ := svc.Save()
		return save, nil
	case "report":
		return svc.Report()
	case "advance":
		return svc.AdvancePeriod(ctx)
	case "backup":
		k, err := svc.Backup(ctx)
		return map[string]string{"key": k}, err
	case "backups":
		return svc.Backups(ctx)
	case "restore":
		return svc.RestoreBackup(ctx, key)
	case "reset":
		return nil, svc.Reset(ctx)
	case "archive":
		return svc.Archive(ctx)
	}
	return nil, fmt.Errorf("unknown command %q", cmd)
}
