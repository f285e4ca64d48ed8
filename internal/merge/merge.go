// Package merge combines two sorted history snapshots into one chronological,
// deduplicated log.
package merge

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chronmerge/internal/history"
)

// Merge writes the chronological union of a and b to w. Records present in
// both snapshots are emitted once. When two distinct records share a
// timestamp, a's record is written first: the first source is the primary
// one, the same preference the reconciler applies at the directory level.
// Emitted records round-trip byte-for-byte; nothing is reformatted.
func Merge(a, b history.Snapshot, w io.Writer) error {
	ia, ib := 0, 0
	for ia < len(a) && ib < len(b) {
		cmp := strings.Compare(a[ia].Timestamp, b[ib].Timestamp)
		if cmp > 0 {
			if _, err := b[ib].WriteTo(w); err != nil {
				return err
			}
			ib++
			continue
		}
		if cmp == 0 && a[ia].Equal(b[ib]) {
			// Both clients logged the same entry; keep a's copy.
			ib++
		}
		if _, err := a[ia].WriteTo(w); err != nil {
			return err
		}
		ia++
	}

	for ; ia < len(a); ia++ {
		if _, err := a[ia].WriteTo(w); err != nil {
			return err
		}
	}
	for ; ib < len(b); ib++ {
		if _, err := b[ib].WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

// Files merges the history files at pathA and pathB into outPath. Both
// inputs are loaded fully before the output is touched, so outPath may be
// one of the inputs (in-place mode). The result lands via a temp file
// renamed into place, never a half-written log.
func Files(pathA, pathB, outPath string) error {
	a, err := history.Load(pathA)
	if err != nil {
		return err
	}
	b, err := history.Load(pathB)
	if err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(outPath), "."+filepath.Base(outPath)+"."+uuid.NewString()+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := Merge(a, b, w); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close output: %w", err)
	}

	if err := os.Rename(tmp, outPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
