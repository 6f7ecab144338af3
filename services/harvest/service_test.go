package harvest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ao3harvest/services/harvest/db"

	"github.com/stretchr/testify/require"
)

// archive is a fake AO3: one listing page with three works (plus a broken
// blurb without a story link), a detail page and an epub download per work.
type archive struct {
	mu            sync.Mutex
	requests      []string
	failDownloads bool
}

func (a *archive) record(r *http.Request) {
	a.mu.Lock()
	a.requests = append(a.requests, r.URL.RequestURI())
	a.mu.Unlock()
}

func (a *archive) requested(fragment string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, req := range a.requests {
		if strings.Contains(req, fragment) {
			return true
		}
	}
	return false
}

const listingPage1 = `<ol class="work index group">
  <li class="work blurb group"><h4 class="heading"><a href="/works/101">One</a></h4></li>
  <li class="work blurb group"><h4 class="heading"></h4></li>
  <li class="work blurb group"><h4 class="heading"><a href="/works/102">Two</a></h4></li>
  <li class="work blurb group"><h4 class="heading"><a href="/works/103">Three</a></h4></li>
</ol>`

func (a *archive) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		a.record(r)
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, listingPage1)
			return
		}
		fmt.Fprint(w, `<ol class="work index group"></ol>`)
	})
	mux.HandleFunc("/works/", func(w http.ResponseWriter, r *http.Request) {
		a.record(r)
		id := strings.TrimPrefix(r.URL.Path, "/works/")
		fmt.Fprintf(w, `<div id="workskin">
			<h2 class="title heading">Story %s</h2>
			<a rel="author">author-%s</a>
			<dd class="words">1,000</dd>
			<dd class="chapters">3/?</dd>
			<li class="download"><ul><li><a href="/downloads/%s/story.epub">EPUB</a></li></ul></li>
		</div>`, id, id, id)
	})
	mux.HandleFunc("/downloads/", func(w http.ResponseWriter, r *http.Request) {
		a.record(r)
		if a.failDownloads {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "epub-bytes")
	})
	return httptest.NewServer(mux)
}

func testConfig(t *testing.T, baseURL string) Config {
	dir := t.TempDir()
	return Config{
		BaseURL:    baseURL,
		ContentDir: filepath.Join(dir, "content"),
		LedgerPath: filepath.Join(dir, "scraped_stories.txt"),
		CSVPath:    filepath.Join(dir, "stories_metadata.csv"),
		Fetch:      FetchSettings{Retries: 1},
	}
}

func artifactCount(t *testing.T, dir string) int {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	count := 0
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".epub") {
			count++
		}
	}
	return count
}

func TestRunStopsAtTarget(t *testing.T) {
	arc := &archive{}
	srv := arc.server()
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	// 101 was completed by an earlier run
	require.NoError(t, os.WriteFile(cfg.LedgerPath, []byte("101\n"), 0644))

	svc, err := NewService(cfg)
	require.NoError(t, err)
	defer svc.Close()

	stats, err := svc.Run(context.Background(), srv.URL+"/search?query=x", 2)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Scraped)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 1, stats.PagesVisited)

	// the target was met on page 1, so page 2 was never requested
	require.False(t, arc.requested("page=2"))

	require.True(t, svc.Ledger().Contains("102"))
	require.True(t, svc.Ledger().Contains("103"))
	require.Equal(t, 3, svc.Ledger().Len())
	require.Equal(t, 2, artifactCount(t, cfg.ContentDir))

	records := readAll(t, cfg.CSVPath)
	require.Len(t, records, 3)
	require.Equal(t, "102", records[1][1])
	require.Equal(t, "Story 102", records[1][3])
	require.Equal(t, "1000", records[1][12])
	require.Equal(t, "3", records[1][13])
}

func TestRunRerunIsIdempotent(t *testing.T) {
	arc := &archive{}
	srv := arc.server()
	defer srv.Close()

	cfg := testConfig(t, srv.URL)

	svc, err := NewService(cfg)
	require.NoError(t, err)
	stats, err := svc.Run(context.Background(), srv.URL+"/search?query=x", 3)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Scraped)
	require.NoError(t, svc.Close())

	// same directories, fresh process: everything is already ledgered, and
	// the empty pages after page 1 end the run
	svc, err = NewService(cfg)
	require.NoError(t, err)
	defer svc.Close()
	stats, err = svc.Run(context.Background(), srv.URL+"/search?query=x", 3)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Scraped)
	require.Equal(t, 3, stats.Skipped)
	require.Equal(t, 4, stats.PagesVisited)

	require.Equal(t, 3, svc.Ledger().Len())
	require.Len(t, readAll(t, cfg.CSVPath), 4)
	require.Equal(t, 3, artifactCount(t, cfg.ContentDir))
}

func TestRunFailedDownloadLeavesWorkUnledgered(t *testing.T) {
	arc := &archive{failDownloads: true}
	srv := arc.server()
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	svc, err := NewService(cfg)
	require.NoError(t, err)
	defer svc.Close()

	stats, err := svc.Run(context.Background(), srv.URL+"/search?query=x", 1)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Scraped)

	// nothing committed: a rerun must retry these works from scratch
	require.Equal(t, 0, svc.Ledger().Len())
	require.Len(t, readAll(t, cfg.CSVPath), 1)
	require.Equal(t, 0, artifactCount(t, cfg.ContentDir))
}

func TestRunZeroTarget(t *testing.T) {
	arc := &archive{}
	srv := arc.server()
	defer srv.Close()

	svc, err := NewService(testConfig(t, srv.URL))
	require.NoError(t, err)
	defer svc.Close()

	stats, err := svc.Run(context.Background(), srv.URL+"/search?query=x", 0)
	require.NoError(t, err)
	require.Equal(t, Stats{}, stats)
	require.Empty(t, arc.requests)
}

func TestRunJournalsFetches(t *testing.T) {
	arc := &archive{}
	srv := arc.server()
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.JournalPath = filepath.Join(t.TempDir(), "journal.db")

	svc, err := NewService(cfg)
	require.NoError(t, err)
	_, err = svc.Run(context.Background(), srv.URL+"/search?query=x", 1)
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	journal, err := db.Open(cfg.JournalPath)
	require.NoError(t, err)
	defer journal.Close()

	// listing page, detail page, artifact download
	entries, err := journal.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		require.Equal(t, "ok", e.Outcome)
		require.Equal(t, 1, e.Attempts)
		require.Equal(t, http.StatusOK, e.StatusCode)
	}
	// newest first
	require.Contains(t, entries[0].URL, "/downloads/")
}
