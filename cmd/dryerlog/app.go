package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/dryerlog/internal/config"
	"github.com/JonMunkholm/dryerlog/internal/core"
	"github.com/JonMunkholm/dryerlog/internal/logging"
	"github.com/JonMunkholm/dryerlog/internal/schema"
	"github.com/JonMunkholm/dryerlog/internal/storage"
	"github.com/JonMunkholm/dryerlog/internal/store"
)

// app holds the objects shared by every command.
type app struct {
	ephemeral bool
	outDir    string
	quiet     bool
	started   bool

	cfg     *config.Config
	backend storage.Backend
	store   *store.Store
	service *core.Service
	unsub   func()
}

func (a *app) open(ctx context.Context) error {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return withCode(exitUsage, err)
	}
	a.cfg = cfg
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	cat, err := loadCatalog(cfg.Schema)
	if err != nil {
		return withCode(exitUsage, err)
	}

	storageCfg := cfg.Storage
	if a.ephemeral {
		storageCfg.Backend = config.BackendMemory
	}
	a.backend, err = storage.Open(ctx, storageCfg)
	if err != nil {
		return err
	}

	a.store, err = store.New(ctx, a.backend, cat, store.WithLocale(cfg.Export.LocaleTag()))
	if err != nil {
		// Refuse to run against an unreadable snapshot.
		a.backend.Close()
		return err
	}
	if !a.quiet {
		a.unsub = a.store.Events().Subscribe(printNotice(os.Stderr))
	}

	a.service = core.NewService(a.store, core.OptionsFromConfig(cfg.Import))
	return nil
}

func (a *app) close() error {
	if a.unsub != nil {
		a.unsub()
	}
	if a.backend != nil {
		return a.backend.Close()
	}
	return nil
}

func loadCatalog(cfg config.SchemaConfig) (*schema.Catalog, error) {
	if cfg.File == "" {
		return schema.Default()
	}
	cat, err := schema.LoadFile(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("SCHEMA_FILE: %w", err)
	}
	return cat, nil
}

func printNotice(w io.Writer) func(store.Event) {
	return func(e store.Event) {
		if n, ok := e.(store.Notice); ok {
			fmt.Fprintf(w, "[%s] %s\n", n.Level, n.Text)
		}
	}
}

// save writes an export into the output directory, or to stdout for
// --out -. Files are replaced atomically.
func (a *app) save(art *core.Artifact) (string, error) {
	dir := a.outDir
	if dir == "" {
		dir = a.cfg.Export.Dir
	}
	if dir == "-" {
		_, err := art.WriteTo(os.Stdout)
		return "-", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, art.Name)
	tmp, err := os.CreateTemp(dir, "."+art.Name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := art.WriteTo(tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", art.Name, err)
	}
	if err := errors.Join(tmp.Sync(), tmp.Close()); err != nil {
		return "", fmt.Errorf("write %s: %w", art.Name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", art.Name, err)
	}
	slog.Info("file written", "path", path, "records", art.Count)
	return path, nil
}
