package sync

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/knolvocab/internal/domain"
	"github.com/conorfennell/knolvocab/internal/gitsource"
	"github.com/conorfennell/knolvocab/internal/index"
	"github.com/conorfennell/knolvocab/internal/knol"
	"github.com/conorfennell/knolvocab/internal/parser"
	"github.com/conorfennell/knolvocab/internal/storage"
)

// Report counts the mutation records appended by a reconciliation.
type Report struct {
	Added    int
	Updated  int
	Restored int
	Deleted  int
	Errors   []error
}

func (r *Report) merge(o Report) {
	r.Added += o.Added
	r.Updated += o.Updated
	r.Restored += o.Restored
	r.Deleted += o.Deleted
	r.Errors = append(r.Errors, o.Errors...)
}

// SourceType guesses whether a source path refers to a git repository.
func SourceType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") || strings.HasPrefix(path, "https://") {
		return storage.SourceGit
	}
	return storage.SourceLocal
}

// RunSync iterates over all sources and reconciles their decks into the
// card mutation log. Git sources are cloned or pulled into reposDir first.
// A source that fails to sync is logged and skipped.
func RunSync(db *storage.DB, reposDir string, now time.Time, progress io.Writer) (Report, error) {
	slog.Info("Starting sync process for all sources...")
	var report Report

	sources, err := db.GetAllSources()
	if err != nil {
		return report, fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with: knolvocab add-source <path/or/url.git>")
		return report, nil
	}

	type resolved struct {
		source storage.Source
		dir    string
	}
	var ready []resolved
	for _, source := range sources {
		slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		dir := source.Path
		if source.Type == storage.SourceGit {
			localRepoPath, err := gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("Error determining local path for git repo", "url", source.Path, "error", err)
				report.Errors = append(report.Errors, err)
				continue
			}
			if err := os.MkdirAll(filepath.Dir(localRepoPath), os.ModePerm); err != nil {
				return report, fmt.Errorf("failed to create repos directory: %w", err)
			}
			if err := gitsource.Sync(source.Path, localRepoPath, progress); err != nil {
				slog.Error("Error syncing git repo", "url", source.Path, "error", err)
				report.Errors = append(report.Errors, err)
				continue
			}
			dir = localRepoPath
		}
		ready = append(ready, resolved{source: source, dir: dir})
	}

	// A card dropped by its owner is deleted; a second pass lets another
	// source still listing it take it over within the same sync.
	for pass := 0; pass < 2; pass++ {
		var deleted int
		for _, r := range ready {
			rep, err := ReconcileDir(db, r.source.Path, r.dir, now)
			if err != nil {
				slog.Error("Error reconciling source", "path", r.source.Path, "error", err)
				report.Errors = append(report.Errors, err)
				continue
			}
			deleted += rep.Deleted
			report.merge(rep)
		}
		if deleted == 0 {
			break
		}
	}

	for _, r := range ready {
		if err := db.UpdateSourceLastScanned(r.source.ID, now); err != nil {
			slog.Warn("Failed to update last scanned for source", "source_id", r.source.ID, "error", err)
		}
	}
	slog.Info("Sync process complete.",
		"added", report.Added,
		"updated", report.Updated,
		"restored", report.Restored,
		"deleted", report.Deleted,
		"errors", len(report.Errors),
	)
	return report, nil
}

// ReconcileDir parses every markdown deck under dir and appends the card
// mutations needed to make the live cards of sourceKey match the files: new
// cards start at version 1, changed or previously deleted cards get the next
// version, and cards of this source missing from the files get a deleted
// version. Unchanged cards append nothing. A live card owned by another
// registered source is left to that source; one owned by an unregistered
// source is taken over.
func ReconcileDir(db *storage.DB, sourceKey, dir string, now time.Time) (Report, error) {
	var report Report
	found := make(map[string]domain.Card)
	var foundOrder []string

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
		fileCards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, card := range fileCards {
			card.ID = knol.Hash(card)
			if _, dup := found[card.ID]; dup {
				slog.Warn("Duplicate card front, keeping the first", "path", path, "front", card.Front)
				continue
			}
			found[card.ID] = card
			foundOrder = append(foundOrder, card.ID)
		}
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("error walking directory %s: %w", dir, walkErr)
	}

	mutations, err := db.ReadAllCardMutations()
	if err != nil {
		return report, err
	}
	latest := index.Latest(mutations)

	sources, err := db.GetAllSources()
	if err != nil {
		return report, fmt.Errorf("failed to get sources: %w", err)
	}
	registered := make(map[string]bool, len(sources))
	for _, src := range sources {
		registered[src.Path] = true
	}

	appendMutation := func(m domain.CardMutation) bool {
		if err := db.AppendCardMutation(m); err != nil {
			report.Errors = append(report.Errors, err)
			return false
		}
		return true
	}

	for _, id := range foundOrder {
		card := found[id]
		next := domain.CardMutation{
			ID:        id,
			Front:     card.Front,
			Back:      card.Back,
			Tags:      card.Tags,
			Source:    sourceKey,
			CreatedAt: now,
			UpdatedAt: now,
			Version:   1,
		}

		cur, ok := latest[id]
		switch {
		case !ok:
			if appendMutation(next) {
				slog.Debug("New card found", "id", id, "front", card.Front)
				report.Added++
			}
		case cur.Deleted:
			next.CreatedAt = cur.CreatedAt
			next.Version = cur.Version + 1
			if appendMutation(next) {
				slog.Debug("Restoring deleted card", "id", id, "version", next.Version)
				report.Restored++
			}
		case cur.Source != sourceKey && registered[cur.Source]:
			// Owned by another registered source that still lists it.
			slog.Debug("Card owned by another source", "id", id, "owner", cur.Source)
		case cur.Source != sourceKey || !knol.SameContent(cur.Card(), card):
			next.CreatedAt = cur.CreatedAt
			next.Version = cur.Version + 1
			if appendMutation(next) {
				slog.Debug("Card changed", "id", id, "version", next.Version)
				report.Updated++
			}
		}
	}

	for id, cur := range latest {
		if cur.Deleted || cur.Source != sourceKey {
			continue
		}
		if _, ok := found[id]; ok {
			continue
		}
		gone := cur
		gone.Version = cur.Version + 1
		gone.UpdatedAt = now
		gone.Deleted = true
		if appendMutation(gone) {
			slog.Debug("Card removed from deck", "id", id, "version", gone.Version)
			report.Deleted++
		}
	}

	slog.Info("reconciliation complete",
		"path", dir,
		"parsed_cards", len(found),
		"added", report.Added,
		"updated", report.Updated,
		"restored", report.Restored,
		"deleted", report.Deleted,
		"errors", len(report.Errors),
	)
	return report, nil
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
