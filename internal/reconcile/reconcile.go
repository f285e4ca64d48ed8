// Package reconcile pairs two history trees and decides, per file, whether
// to merge or copy.
package reconcile

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/MikeSquared-Agency/chronmerge/internal/merge"
)

// ErrStructureMismatch indicates that one top-level source is a directory
// and the other is a file.
var ErrStructureMismatch = errors.New("sources must both be files or both be directories")

// Op is the per-file reconciliation decision.
type Op int

const (
	// OpMerge: the name exists in both directories; merge the two logs.
	OpMerge Op = iota
	// OpCopyFromFirst: the name exists only in the first directory.
	OpCopyFromFirst
	// OpCopyFromSecond: the name exists only in the second directory.
	OpCopyFromSecond
)

// Step is one planned action for a single file name.
type Step struct {
	Name string
	Op   Op
}

// PlanDir classifies every regular file found in either directory.
// Subdirectories are skipped; there is no recursion. Steps come back in
// sorted name order.
func PlanDir(dirA, dirB string) ([]Step, error) {
	inA, err := listFiles(dirA)
	if err != nil {
		return nil, err
	}
	inB, err := listFiles(dirB)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(inA)+len(inB))
	for name := range inA {
		names = append(names, name)
	}
	for name := range inB {
		if !inA[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	steps := make([]Step, 0, len(names))
	for _, name := range names {
		switch {
		case inA[name] && inB[name]:
			steps = append(steps, Step{Name: name, Op: OpMerge})
		case inA[name]:
			steps = append(steps, Step{Name: name, Op: OpCopyFromFirst})
		default:
			steps = append(steps, Step{Name: name, Op: OpCopyFromSecond})
		}
	}
	return steps, nil
}

func listFiles(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names[e.Name()] = true
	}
	return names, nil
}

// Reconciler runs the per-file merge/copy plan for two sources.
type Reconciler struct {
	logger *slog.Logger
}

// New creates a reconciler.
func New(logger *slog.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// Run reconciles src1 and src2 into out. Both sources must be files or both
// directories. An empty out means in-place mode: src1 (or src1's directory)
// receives the result.
func (r *Reconciler) Run(src1, src2, out string) error {
	info1, err := os.Stat(src1)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src1, err)
	}
	info2, err := os.Stat(src2)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src2, err)
	}
	if info1.IsDir() != info2.IsDir() {
		return fmt.Errorf("%w: %s and %s", ErrStructureMismatch, src1, src2)
	}

	if out == "" {
		out = src1
	}

	if info1.IsDir() {
		outInfo, err := os.Stat(out)
		if err != nil {
			return fmt.Errorf("stat %s: %w", out, err)
		}
		if !outInfo.IsDir() {
			return fmt.Errorf("%w: output %s is not a directory", ErrStructureMismatch, out)
		}
		return r.Dirs(src1, src2, out)
	}
	return r.File(src1, src2, out)
}

// File merges a single pair of history files.
func (r *Reconciler) File(pathA, pathB, outPath string) error {
	r.logger.Info("merging", "first", pathA, "second", pathB, "out", outPath)
	return merge.Files(pathA, pathB, outPath)
}

// Dirs reconciles every file of dirA and dirB into outDir. A failure on one
// file is recorded and the remaining files still run; the aggregate error
// is non-nil if any file failed.
func (r *Reconciler) Dirs(dirA, dirB, outDir string) error {
	steps, err := PlanDir(dirA, dirB)
	if err != nil {
		return err
	}

	var errs *multierror.Error
	merged, copied, failed := 0, 0, 0

	for _, step := range steps {
		outPath := filepath.Join(outDir, step.Name)
		var err error
		switch step.Op {
		case OpMerge:
			err = r.File(filepath.Join(dirA, step.Name), filepath.Join(dirB, step.Name), outPath)
			if err == nil {
				merged++
			}
		case OpCopyFromFirst:
			r.logger.Info("copying", "from", filepath.Join(dirA, step.Name), "out", outPath)
			err = copyFile(filepath.Join(dirA, step.Name), outPath)
			if err == nil {
				copied++
			}
		case OpCopyFromSecond:
			r.logger.Info("copying", "from", filepath.Join(dirB, step.Name), "out", outPath)
			err = copyFile(filepath.Join(dirB, step.Name), outPath)
			if err == nil {
				copied++
			}
		}
		if err != nil {
			failed++
			r.logger.Error("reconcile failed", "file", step.Name, "error", err)
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", step.Name, err))
		}
	}

	r.logger.Info("reconciliation complete",
		"merged", merged,
		"copied", copied,
		"failed", failed,
	)
	return errs.ErrorOrNil()
}

// copyFile copies src to dst verbatim. When both paths resolve to the same
// underlying file (same path, hard link, or symlink to it), the copy is a
// no-op success.
func copyFile(src, dst string) error {
	si, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if di, err := os.Stat(dst); err == nil && os.SameFile(si, di) {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	return nil
}
