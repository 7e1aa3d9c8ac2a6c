package rewrite

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
	"git.home.luguber.info/inful/protoimporter/internal/fsutil"
	"git.home.luguber.info/inful/protoimporter/internal/logfields"
	"git.home.luguber.info/inful/protoimporter/internal/plan"
)

// Options tunes a tree rewrite.
type Options struct {
	Workers int    // concurrent files; values below 1 mean 1
	Header  string // stamped on the first line of every artifact when non-empty
}

// Stats summarizes a tree rewrite.
type Stats struct {
	Files        int
	FilesChanged int
	Imports      int
}

// Tree rewrites every artifact of p in place. Files are processed in parallel;
// each is replaced atomically. All failures are collected and returned as one
// RewriteError.
func Tree(ctx context.Context, p *plan.Plan, opts Options) (Stats, error) {
	idx := NewIndex(p)
	workers := max(opts.Workers, 1)

	var (
		g       errgroup.Group
		changed atomic.Int64
		imports atomic.Int64
	)
	g.SetLimit(workers)
	errs := make([]error, len(p.Artifacts))

	for i, art := range p.Artifacts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			path := filepath.Join(p.OutRoot(), filepath.FromSlash(art.RelPath()))
			n, didChange, err := File(path, art.Module, idx, opts.Header)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", art.RelPath(), err)
				return nil
			}
			imports.Add(int64(n))
			if didChange {
				changed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats := Stats{Files: len(p.Artifacts), FilesChanged: int(changed.Load()), Imports: int(imports.Load())}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return stats, errors.WrapError(stderrors.Join(failed...), errors.CategoryRewrite, "imports could not be rewritten").
			WithContext("unit", p.Unit.Name).
			WithContext("failed_files", len(failed)).
			Build()
	}
	slog.Debug("Rewrote imports", logfields.Unit(p.Unit.Name),
		slog.Int("files", stats.Files), slog.Int("changed", stats.FilesChanged), logfields.Count(stats.Imports))
	return stats, nil
}

// File rewrites one artifact on disk and reports how many statements changed
// and whether the file was replaced.
func File(path string, importer plan.ModulePath, idx *Index, header string) (int, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false, err
	}
	original := string(data)

	out, refs, err := Source(importer, original, idx)
	if err != nil {
		return 0, false, err
	}
	out = StampHeader(out, header)
	if out == original {
		return len(refs), false, nil
	}
	if err := fsutil.WriteFileAtomic(path, []byte(out), info.Mode().Perm()); err != nil {
		return 0, false, err
	}
	return len(refs), true, nil
}
