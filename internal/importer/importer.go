package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/conorfennell/prepdeck/internal/domain"
	"github.com/conorfennell/prepdeck/internal/fingerprint"
	"github.com/conorfennell/prepdeck/internal/gitsource"
	"github.com/conorfennell/prepdeck/internal/parser"
	"github.com/conorfennell/prepdeck/internal/storage"
)

// Store is the slice of the question store an import needs.
type Store interface {
	List(ctx context.Context, f storage.Filter) ([]domain.Question, error)
	Insert(ctx context.Context, q domain.Question) (int64, error)
}

// Report summarizes one import run.
type Report struct {
	Source   string
	Files    int
	Parsed   int
	Inserted int
	Skipped  int
	Errors   []error
}

// Importer loads markdown decks into a store.
type Importer struct {
	store   Store
	workDir string
}

// New returns an Importer that clones remote decks under workDir.
func New(store Store, workDir string) *Importer {
	return &Importer{store: store, workDir: workDir}
}

// Import reads every .md deck under source, which is either a local
// directory or a git URL, and inserts questions not already stored.
// Per-file and per-card problems are collected in the report; only a
// failure to reach the source or the store aborts the run.
func (im *Importer) Import(ctx context.Context, source string) (Report, error) {
	report := Report{Source: source}

	dir := source
	if gitsource.IsRemote(source) {
		local, err := gitsource.LocalPath(im.workDir, source)
		if err != nil {
			return report, err
		}
		if err := gitsource.Sync(ctx, source, local); err != nil {
			return report, err
		}
		dir = local
	}

	existing, err := im.store.List(ctx, storage.Filter{})
	if err != nil {
		return report, fmt.Errorf("failed to load existing questions: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, q := range existing {
		known[fingerprint.Hash(q)] = true
	}

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		report.Files++
		questions, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}

		for _, q := range questions {
			report.Parsed++
			hash := fingerprint.Hash(q)
			if known[hash] {
				report.Skipped++
				continue
			}

			id, insertErr := im.store.Insert(ctx, q)
			if insertErr != nil {
				if errors.Is(insertErr, domain.ErrStorage) {
					return insertErr
				}
				report.Errors = append(report.Errors, fmt.Errorf("%s: %w", path, insertErr))
				continue
			}
			known[hash] = true
			report.Inserted++
			slog.Debug("Imported question", "id", id, "file", path)
		}
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("failed to import %s: %w", dir, walkErr)
	}

	slog.Info("Import complete",
		"source", source,
		"files", report.Files,
		"parsed", report.Parsed,
		"inserted", report.Inserted,
		"skipped", report.Skipped,
		"errors", len(report.Errors),
	)
	return report, nil
}
