// Package consistency cross-checks the metadata table against the artifact
// directory: every table row should have an epub named by its ID, and every
// epub should have a table row. It only reads; nothing is repaired.
package consistency

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const artifactExt = ".epub"

type Report struct {
	// MissingArtifacts are table IDs with no corresponding artifact file.
	MissingArtifacts []string
	// OrphanArtifacts are artifact filenames with no table row.
	OrphanArtifacts []string
}

func (r Report) Consistent() bool {
	return len(r.MissingArtifacts) == 0 && len(r.OrphanArtifacts) == 0
}

func Check(csvPath, artifactDir string) (Report, error) {
	tableIDs, err := readTableIDs(csvPath)
	if err != nil {
		return Report{}, err
	}
	artifactIDs, err := readArtifactIDs(artifactDir)
	if err != nil {
		return Report{}, err
	}

	var report Report
	for id := range tableIDs {
		if _, ok := artifactIDs[id]; !ok {
			report.MissingArtifacts = append(report.MissingArtifacts, id)
		}
	}
	for id := range artifactIDs {
		if _, ok := tableIDs[id]; !ok {
			report.OrphanArtifacts = append(report.OrphanArtifacts, id+artifactExt)
		}
	}
	sort.Strings(report.MissingArtifacts)
	sort.Strings(report.OrphanArtifacts)
	return report, nil
}

func readTableIDs(csvPath string) (map[string]struct{}, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read table header: %w", err)
	}
	idCol := -1
	for i, name := range header {
		if name == "ID" {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("table %s has no ID column", csvPath)
	}

	ids := map[string]struct{}{}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read table row: %w", err)
		}
		if idCol < len(row) && row[idCol] != "" {
			ids[row[idCol]] = struct{}{}
		}
	}
	return ids, nil
}

func readArtifactIDs(dir string) (map[string]struct{}, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read artifact dir: %w", err)
	}

	ids := map[string]struct{}{}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		name := f.Name()
		if !strings.HasSuffix(name, artifactExt) {
			continue
		}
		ids[strings.TrimSuffix(name, filepath.Ext(name))] = struct{}{}
	}
	return ids, nil
}
