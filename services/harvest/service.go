package harvest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ao3harvest/lib/fetch"
	"ao3harvest/lib/scrapers/ao3"
	"ao3harvest/services/harvest/db"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/harvest")

// Service walks search-result pages in order, skips works already in the
// resume ledger and drives the per-item fetch/extract/record cycle until the
// target count is reached. It is strictly sequential: one page, one work,
// one request at a time.
type Service struct {
	cfg     Config
	client  *fetch.Client
	ledger  *Ledger
	table   *Table
	journal *db.Journal
}

// NewService prepares storage (content dir, ledger, table header, journal).
// Setup failure here is the only fatal condition of the scrape.
func NewService(cfg Config) (*Service, error) {
	cfg = cfg.withDefaults()

	err := os.MkdirAll(cfg.ContentDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}
	ledger, err := LoadLedger(cfg.LedgerPath)
	if err != nil {
		return nil, err
	}
	table, err := OpenTable(cfg.CSVPath)
	if err != nil {
		return nil, err
	}

	client := fetch.NewClient(cfg.Fetch.clientConfig())

	var journal *db.Journal
	if cfg.JournalPath != "" {
		journal, err = db.Open(cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		client.OnResult = func(ctx context.Context, r fetch.Result) {
			outcome := "ok"
			if r.Err != nil {
				outcome = r.Err.Error()
			}
			err := journal.Insert(ctx, db.Entry{
				URL:        r.URL,
				StatusCode: r.StatusCode,
				Attempts:   r.Attempts,
				Outcome:    outcome,
				DurationMs: r.Duration.Milliseconds(),
				FetchedAt:  time.Now().Unix(),
			})
			if err != nil {
				slog.WarnContext(ctx, "failed to journal fetch", "url", r.URL, "err", err)
			}
		}
	}

	return &Service{
		cfg:     cfg,
		client:  client,
		ledger:  ledger,
		table:   table,
		journal: journal,
	}, nil
}

func (s *Service) Close() error {
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}

func (s *Service) Ledger() *Ledger {
	return s.ledger
}

type Stats struct {
	// Scraped counts newly completed works this run.
	Scraped int
	// Skipped counts listing entries passed over because their work id was
	// already ledgered.
	Skipped      int
	PagesVisited int
}

// Run scrapes until `target` new works are fully processed, or until
// MaxEmptyPages consecutive listing pages yield nothing. Every per-item
// failure is logged and skipped; the work stays unledgered and a later run
// picks it up again.
func (s *Service) Run(ctx context.Context, listingURL string, target int) (Stats, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("listing_url", listingURL),
		attribute.Int("target", target),
	)

	stats := Stats{}
	if target <= 0 {
		return stats, nil
	}

	emptyPages := 0
	for page := 1; stats.Scraped < target; page++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if emptyPages >= s.cfg.MaxEmptyPages {
			slog.WarnContext(ctx, "listing exhausted before reaching target",
				"consecutive_empty_pages", emptyPages,
				"scraped", stats.Scraped,
				"target", target,
			)
			break
		}

		pageURL, err := ao3.PageURL(listingURL, page)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return stats, err
		}
		stats.PagesVisited++

		res, err := s.client.Get(ctx, pageURL)
		if err != nil {
			slog.WarnContext(ctx, "skipping page due to repeated errors", "url", pageURL)
			emptyPages++
			continue
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
		if err != nil {
			slog.WarnContext(ctx, "skipping unparseable page", "url", pageURL, "err", err)
			emptyPages++
			continue
		}

		entries := ao3.ParseListing(doc)
		if len(entries) == 0 {
			slog.InfoContext(ctx, "listing page had no works", "url", pageURL)
			emptyPages++
			continue
		}
		emptyPages = 0

		for i, entry := range entries {
			if stats.Scraped >= target {
				break
			}
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if entry.Href == "" {
				slog.WarnContext(ctx, "work entry missing story link", "page", pageURL, "index", i)
				continue
			}

			workID := ao3.WorkID(entry.Href)
			if s.ledger.Contains(workID) {
				stats.Skipped++
				continue
			}

			work, err := s.processWork(ctx, workID, entry.Href)
			if err != nil {
				slog.ErrorContext(ctx, "failed to scrape story", "work_id", workID, "err", err)
				continue
			}

			stats.Scraped++
			slog.InfoContext(ctx, "scraped story",
				"scraped", stats.Scraped,
				"target", target,
				"title", work.Title,
			)
		}
	}

	return stats, nil
}

// processWork runs one item through the full cycle. The ledger append is
// last: a work is only marked done once its artifact is on disk and its row
// is in the table, so any earlier failure leaves it eligible for a rerun.
func (s *Service) processWork(ctx context.Context, workID, href string) (ao3.Work, error) {
	ctx, span := tracer.Start(ctx, "processWork")
	defer span.End()
	span.SetAttributes(attribute.String("work_id", workID))

	storyURL := ao3.WorkURL(s.cfg.BaseURL, href)
	res, err := s.client.Get(ctx, storyURL)
	if err != nil {
		return ao3.Work{}, fmt.Errorf("detail page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return ao3.Work{}, fmt.Errorf("parse detail page: %w", err)
	}

	work := ao3.ParseWork(workID, storyURL, doc)
	work.ID = uuid.NewString()

	dlHref, ok := ao3.DownloadLink(doc)
	if !ok {
		return ao3.Work{}, errors.New("no epub download link on detail page")
	}
	dlRes, err := s.client.Get(ctx, ao3.DownloadURL(s.cfg.BaseURL, dlHref))
	if err != nil {
		return ao3.Work{}, fmt.Errorf("artifact download: %w", err)
	}
	body := dlRes.Body()
	if len(body) == 0 {
		return ao3.Work{}, errors.New("artifact download was empty")
	}

	if err := s.writeArtifact(work.ID, body); err != nil {
		return ao3.Work{}, err
	}
	if err := s.table.Append(work); err != nil {
		return ao3.Work{}, err
	}
	if err := s.ledger.Add(workID); err != nil {
		return ao3.Work{}, err
	}
	return work, nil
}

// writeArtifact stages the blob to a temp file and renames it into place,
// so a crash mid-write can't leave a truncated epub under a final name.
func (s *Service) writeArtifact(id string, body []byte) error {
	final := filepath.Join(s.cfg.ContentDir, id+".epub")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, body, 0644); err != nil {
		return fmt.Errorf("stage artifact: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit artifact: %w", err)
	}
	return nil
}
