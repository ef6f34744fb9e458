package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/driftlint/driftlint/internal/aictx"
	"github.com/driftlint/driftlint/internal/aggregate"
	"github.com/driftlint/driftlint/internal/config"
	"github.com/driftlint/driftlint/internal/detect"
	"github.com/driftlint/driftlint/internal/detect/builtin"
	"github.com/driftlint/driftlint/internal/quickfix"
	"github.com/driftlint/driftlint/internal/rules"
	"github.com/driftlint/driftlint/internal/scanner"
	"github.com/driftlint/driftlint/internal/storage"
	"github.com/driftlint/driftlint/internal/variants"
)

// app bundles the wired-up engine for one CLI invocation.
type app struct {
	root     string
	cfg      *config.Config
	store    storage.Store
	variants *variants.Manager
	service  *scanner.Service
}

// newApp loads configuration from the project root and assembles the engine.
// The caller must Close the app when done.
func newApp(ctx context.Context, root string) (*app, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root %s: %w", root, err)
	}

	cfg, err := config.LoadDir(absRoot, Version)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(ctx, &storage.Config{
		Path: filepath.Join(absRoot, cfg.StoragePath),
	})
	if err != nil {
		return nil, fmt.Errorf("opening pattern database: %w", err)
	}

	registry, err := detect.NewRegistry(builtin.All()...)
	if err != nil {
		store.Close()
		return nil, err
	}

	engine, err := rules.NewEngine(cfg.Severity, aictx.NewRegistry(nil))
	if err != nil {
		store.Close()
		return nil, err
	}

	fixes := quickfix.NewGenerator(
		[]quickfix.Provider{
			&quickfix.ReplaceProvider{},
			&builtin.QuoteFixProvider{},
		},
		quickfix.WithMinConfidence(cfg.QuickFixMinConfidence),
		quickfix.WithContentProvider(func(file string) (string, error) {
			data, err := os.ReadFile(filepath.Join(absRoot, file))
			return string(data), err
		}),
	)

	mgr := variants.NewManager(store)

	svc := scanner.NewService(registry, scanner.Options{
		ProjectRoot: absRoot,
		Workers:     cfg.Workers,
		IgnoreGlobs: cfg.Ignore,
		Incremental: cfg.Incremental,
	}, scanner.Deps{
		Aggregator: aggregate.New(cfg.MinOccurrences),
		Rules:      engine,
		Fixes:      fixes,
		Variants:   mgr,
		Store:      store,
	})

	return &app{
		root:     absRoot,
		cfg:      cfg,
		store:    store,
		variants: mgr,
		service:  svc,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: closing database: %v\n", err)
	}
}
