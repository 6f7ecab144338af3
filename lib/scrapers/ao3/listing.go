package ao3

import (
	"github.com/PuerkitoBio/goquery"
)

// ListingEntry is one work blurb on a search-result page. Href is "" when
// the blurb had no heading link; callers log and skip those.
type ListingEntry struct {
	Href string
}

// ParseListing extracts the work entries of a search-result page in
// document order. A page with no `li.work` elements parses to an empty
// slice, which the driver treats as page exhaustion.
func ParseListing(doc *goquery.Document) []ListingEntry {
	var entries []ListingEntry
	doc.Find("li.work").Each(func(_ int, work *goquery.Selection) {
		href, ok := work.Find("h4.heading a").First().Attr("href")
		if !ok {
			entries = append(entries, ListingEntry{})
			return
		}
		entries = append(entries, ListingEntry{Href: href})
	})
	return entries
}

// DownloadLink locates the EPUB download anchor on a work's detail page.
// ok is false when the page offers no such link.
func DownloadLink(doc *goquery.Document) (href string, ok bool) {
	doc.Find("li.download a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if a.Text() != "EPUB" {
			return true
		}
		href, ok = a.Attr("href")
		return !ok
	})
	return href, ok
}
