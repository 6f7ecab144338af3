package ao3

import (
	"strings"

	"ao3harvest/lib/htmlutil"
	"ao3harvest/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// Work is the metadata record extracted from one story's detail page.
// ID is the generated identifier assigned by the driver; it doubles as the
// artifact filename key. WorkID is the archive's own identifier and is what
// the resume ledger tracks.
type Work struct {
	ID            string
	WorkID        string
	StoryLink     string
	Title         string
	Author        string
	Fandoms       string
	Tags          string
	Characters    string
	Relationships string
	Rating        string
	Warnings      string
	Categories    string
	Words         int
	Chapters      int
	Language      string
	Status        string
	Comments      int
	Kudos         int
	Bookmarks     int
	Collections   string
	Hits          int
	Summary       string
}

// ParseWork maps a detail page into a Work, field by field. A missing
// element never fails the parse: numeric fields fall back to 0 and text
// fields to "", producing a degraded record rather than an error.
func ParseWork(workID, storyURL string, doc *goquery.Document) Work {
	w := Work{
		WorkID:    workID,
		StoryLink: storyURL,

		Title:  htmlutil.Text(doc, "h2.title.heading"),
		Author: htmlutil.Text(doc, "a[rel=author]"),

		Fandoms:       htmlutil.JoinText(doc, ".fandom.tags .tag"),
		Tags:          htmlutil.JoinText(doc, ".freeform.tags .tag"),
		Characters:    htmlutil.JoinText(doc, ".character.tags .tag"),
		Relationships: htmlutil.JoinText(doc, ".relationship.tags .tag"),
		Rating:        htmlutil.JoinText(doc, ".rating.tags .tag"),
		Warnings:      htmlutil.JoinText(doc, ".warning.tags .tag"),
		Categories:    htmlutil.JoinText(doc, ".category.tags .tag"),
		Collections:   htmlutil.JoinText(doc, ".collections a"),

		Words:     htmlutil.Count(doc, "dd.words"),
		Comments:  htmlutil.Count(doc, "dd.comments"),
		Kudos:     htmlutil.Count(doc, "dd.kudos"),
		Bookmarks: htmlutil.Count(doc, "dd.bookmarks"),
		Hits:      htmlutil.Count(doc, "dd.hits"),

		Language: htmlutil.Text(doc, "dd.language"),
		Status:   htmlutil.Text(doc, "dd.status"),
		Summary:  htmlutil.Text(doc, "div.summary.module blockquote.userstuff"),
	}

	// chapters render as "published/planned", e.g. "3/?" or "12/12"
	chapters := htmlutil.Text(doc, "dd.chapters")
	if idx := strings.IndexByte(chapters, '/'); idx >= 0 {
		chapters = chapters[:idx]
	}
	w.Chapters = textutil.ParseCount(chapters)

	return w
}
