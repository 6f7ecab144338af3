package harvest

import (
	"fmt"
	"os"
	"strings"
)

// Ledger is the append-only set of work ids that have been fully processed:
// record written and artifact saved. A work id is only added after both
// succeed, so the ledger line is the commit marker for an item.
type Ledger struct {
	path string
	seen map[string]struct{}
}

// LoadLedger reads the line-oriented ledger file into memory. A missing
// file is an empty ledger, not an error.
func LoadLedger(path string) (*Ledger, error) {
	seen := map[string]struct{}{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			seen[line] = struct{}{}
		}
	}

	return &Ledger{path: path, seen: seen}, nil
}

func (l *Ledger) Contains(id string) bool {
	_, ok := l.seen[id]
	return ok
}

func (l *Ledger) Len() int {
	return len(l.seen)
}

// Add appends the id to the ledger file and the in-memory set. The file is
// opened, appended, synced and closed per call; there is no long-held
// handle to lose on a crash.
func (l *Ledger) Add(id string) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	_, err = fmt.Fprintln(f, id)
	if err != nil {
		f.Close()
		return fmt.Errorf("append ledger: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}

	l.seen[id] = struct{}{}
	return nil
}
