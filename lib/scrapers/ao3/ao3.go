// Package ao3 holds the site-specific extraction mapping for Archive of Our
// Own: listing pages into entries, work pages into metadata records, and the
// EPUB download link. It is a pure goquery layer; fetching and persistence
// live elsewhere.
package ao3

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

const DefaultBaseURL = "https://archiveofourown.org"

// PageURL renders the listing URL template for the given page number by
// setting its `page` query parameter.
func PageURL(template string, page int) (string, error) {
	u, err := url.Parse(template)
	if err != nil {
		return "", fmt.Errorf("listing url: %w", err)
	}
	q := u.Query()
	q.Set("page", fmt.Sprintf("%d", page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// WorkID derives the source-assigned identifier from a story link,
// e.g. "/works/12345" -> "12345". Used as the dedup key.
func WorkID(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return path.Base(strings.TrimSuffix(href, "/"))
	}
	return path.Base(strings.TrimSuffix(u.Path, "/"))
}

// WorkURL builds the canonical detail-page URL for a story link relative to
// the archive base, opting in to adult-rated works so the page renders
// metadata instead of an interstitial.
func WorkURL(base, href string) string {
	return fmt.Sprintf("%s%s?view_adult=true", strings.TrimSuffix(base, "/"), href)
}

// DownloadURL resolves an artifact link found on a detail page against the
// archive base.
func DownloadURL(base, href string) string {
	return fmt.Sprintf("%s%s", strings.TrimSuffix(base, "/"), href)
}
