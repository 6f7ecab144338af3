package harvest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"ao3harvest/lib/scrapers/ao3"
)

// Header is the fixed column set of the output table, written once when the
// file is created. The consistency checker keys on the "ID" column.
var Header = []string{
	"ID",
	"Work ID",
	"Story Link",
	"Title",
	"Author",
	"Fandom",
	"Tags",
	"Characters",
	"Relationships",
	"Rating",
	"Warnings",
	"Categories",
	"Words",
	"Chapters",
	"Language",
	"Status",
	"Comments",
	"Kudos",
	"Bookmarks",
	"Collections",
	"Hits",
	"Summary",
}

// Table is the append-only CSV of item records. Existing rows are never
// rewritten; OpenTable only creates the file (with its header row) when it
// doesn't exist yet.
type Table struct {
	path string
}

func OpenTable(path string) (*Table, error) {
	_, err := os.Stat(path)
	if err == nil {
		return &Table{path: path}, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat table: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close table: %w", err)
	}
	return &Table{path: path}, nil
}

// Append writes one record row, opening and closing the file per call like
// the ledger does.
func (t *Table) Append(w ao3.Work) error {
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open table: %w", err)
	}
	cw := csv.NewWriter(f)
	err = cw.Write(row(w))
	if err != nil {
		f.Close()
		return fmt.Errorf("append row: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("append row: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync table: %w", err)
	}
	return f.Close()
}

func row(w ao3.Work) []string {
	return []string{
		w.ID,
		w.WorkID,
		w.StoryLink,
		w.Title,
		w.Author,
		w.Fandoms,
		w.Tags,
		w.Characters,
		w.Relationships,
		w.Rating,
		w.Warnings,
		w.Categories,
		strconv.Itoa(w.Words),
		strconv.Itoa(w.Chapters),
		w.Language,
		w.Status,
		strconv.Itoa(w.Comments),
		strconv.Itoa(w.Kudos),
		strconv.Itoa(w.Bookmarks),
		w.Collections,
		strconv.Itoa(w.Hits),
		w.Summary,
	}
}
