// Package links locates unsubscribe affordances in email bodies.
package links

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// unsubscribePattern matches the anchor text and hrefs that typically
// perform an unsubscribe action
var unsubscribePattern = regexp.MustCompile(`(?i)unsubscribe|opt[-\s]?out|email preferences|manage preferences`)

// Locator scans HTML content for unsubscribe candidate URLs
type Locator struct {
	logger *zap.Logger
}

// NewLocator creates a new link locator
func NewLocator(logger *zap.Logger) *Locator {
	return &Locator{logger: logger}
}

// Find returns candidate unsubscribe URLs in document order. Only
// absolute http/https hrefs qualify; duplicates are kept so the caller
// can walk them in order and stop at the first success. Malformed HTML
// or an empty body yields nil.
func (l *Locator) Find(body string) []string {
	if body == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		if l.logger != nil {
			l.logger.Debug("Failed to parse body as HTML", zap.Error(err))
		}
		return nil
	}

	var candidates []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		text := strings.TrimSpace(sel.Text())

		if !unsubscribePattern.MatchString(text) && !unsubscribePattern.MatchString(href) {
			return
		}
		if !isHTTPURL(href) {
			return
		}
		candidates = append(candidates, href)
	})

	if l.logger != nil && len(candidates) > 0 {
		l.logger.Debug("Found unsubscribe links", zap.Int("count", len(candidates)))
	}
	return candidates
}

func isHTTPURL(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
