package harvest

import (
	"time"

	"ao3harvest/lib/fetch"
	"ao3harvest/lib/scrapers/ao3"
)

// FetchSettings is the config-file shape of the retry policy; delays are in
// seconds so the json stays human-editable.
type FetchSettings struct {
	Retries             int    `json:"retries"`
	InitialDelaySeconds int    `json:"initial_delay_seconds"`
	MaxDelaySeconds     int    `json:"max_delay_seconds"`
	TimeoutSeconds      int    `json:"timeout_seconds"`
	UserAgent           string `json:"user_agent"`
}

func (s FetchSettings) clientConfig() fetch.Config {
	return fetch.Config{
		Retries:      s.Retries,
		InitialDelay: time.Duration(s.InitialDelaySeconds) * time.Second,
		MaxDelay:     time.Duration(s.MaxDelaySeconds) * time.Second,
		Timeout:      time.Duration(s.TimeoutSeconds) * time.Second,
		UserAgent:    s.UserAgent,
	}
}

// Config is passed to NewService explicitly; the service keeps no ambient
// state, so tests can point everything at a temp dir.
type Config struct {
	BaseURL    string `json:"base_url"`
	ContentDir string `json:"content_dir"`
	LedgerPath string `json:"ledger_path"`
	CSVPath    string `json:"csv_path"`
	// JournalPath enables the sqlite fetch journal; empty disables it.
	JournalPath string `json:"journal_path"`
	// MaxEmptyPages stops the run after this many consecutive listing pages
	// that were unavailable or contained no works.
	MaxEmptyPages int           `json:"max_empty_pages"`
	Fetch         FetchSettings `json:"fetch"`
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = ao3.DefaultBaseURL
	}
	if c.ContentDir == "" {
		c.ContentDir = "content"
	}
	if c.LedgerPath == "" {
		c.LedgerPath = "scraped_stories.txt"
	}
	if c.CSVPath == "" {
		c.CSVPath = "stories_metadata.csv"
	}
	if c.MaxEmptyPages <= 0 {
		c.MaxEmptyPages = 3
	}
	return c
}
