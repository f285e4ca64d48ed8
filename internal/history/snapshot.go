package history

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
)

// Snapshot is every record of one history log, sorted by timestamp. The sort
// is stable: records sharing a timestamp keep their original file order.
type Snapshot []*Record

// Load reads an entire history file into a sorted snapshot. Loading is
// all-or-nothing: any unparseable record fails the whole file.
func Load(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	snap, err := ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// ReadAll parses records from r until the stream ends, then sorts them into
// timestamp order.
func ReadAll(r io.Reader) (Snapshot, error) {
	br := bufio.NewReader(r)
	var snap Snapshot
	for {
		rec, err := ReadRecord(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(snap)+1, err)
		}
		snap = append(snap, rec)
	}

	sort.SliceStable(snap, func(i, j int) bool {
		return snap[i].Timestamp < snap[j].Timestamp
	})
	return snap, nil
}
