package harvest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"ao3harvest/lib/scrapers/ao3"

	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, path string) [][]string {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestTableWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories_metadata.csv")

	_, err := OpenTable(path)
	require.NoError(t, err)

	// reopening an existing table must not write a second header
	table, err := OpenTable(path)
	require.NoError(t, err)
	require.NoError(t, table.Append(ao3.Work{ID: "a", WorkID: "1"}))

	records := readAll(t, path)
	require.Len(t, records, 2)
	require.Equal(t, Header, records[0])
}

func TestTableAppendRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories_metadata.csv")
	table, err := OpenTable(path)
	require.NoError(t, err)

	work := ao3.Work{
		ID:        "uuid-1",
		WorkID:    "777",
		StoryLink: "https://archiveofourown.org/works/777",
		Title:     "The Long Watch",
		Author:    "someone",
		Words:     104277,
		Chapters:  12,
		Kudos:     9001,
		Summary:   "A story about, with commas, waiting.",
	}
	require.NoError(t, table.Append(work))

	records := readAll(t, path)
	require.Len(t, records, 2)
	row := records[1]
	require.Len(t, row, len(Header))
	require.Equal(t, "uuid-1", row[0])
	require.Equal(t, "777", row[1])
	require.Equal(t, "The Long Watch", row[3])
	require.Equal(t, "104277", row[12])
	require.Equal(t, "12", row[13])
	require.Equal(t, "9001", row[17])
	require.Equal(t, "A story about, with commas, waiting.", row[21])
}

func TestTableExistingRowsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories_metadata.csv")
	table, err := OpenTable(path)
	require.NoError(t, err)
	require.NoError(t, table.Append(ao3.Work{ID: "a"}))

	table, err = OpenTable(path)
	require.NoError(t, err)
	require.NoError(t, table.Append(ao3.Work{ID: "b"}))

	records := readAll(t, path)
	require.Len(t, records, 3)
	require.Equal(t, "a", records[1][0])
	require.Equal(t, "b", records[2][0])
}
