package htmlutil

import (
	"bytes"
	"strings"

	"ao3harvest/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// Text returns the cleaned text of the first node matching the selector,
// or "" when the page doesn't have one. Absence is never an error.
func Text(doc *goquery.Document, selector string) string {
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return ""
	}
	return textutil.Clean(sel.First().Text())
}

// Count returns the numeric value of the first node matching the selector,
// or 0 when the node is missing or not a number.
func Count(doc *goquery.Document, selector string) int {
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return 0
	}
	return textutil.ParseCount(sel.First().Text())
}

// JoinText renders a group of nodes (e.g. a tag list) as comma-joined
// cleaned text. An empty selection joins to "".
func JoinText(doc *goquery.Document, selector string) string {
	var parts []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, textutil.Clean(s.Text()))
	})
	return strings.Join(parts, ", ")
}
