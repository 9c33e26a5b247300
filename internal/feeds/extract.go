package feeds

import (
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

// abstractExtractor pulls a candidate abstract from one place in a feed
// entry; it returns "" when that place has nothing usable.
type abstractExtractor func(*gofeed.Item) string

// abstractExtractors is the ordered list tried against each entry; the
// first non-empty result wins. Journal feeds disagree wildly about where
// the abstract lives, so each known location gets one explicit extractor.
var abstractExtractors = []abstractExtractor{
	func(item *gofeed.Item) string { return item.Description },
	func(item *gofeed.Item) string { return item.Content },
	func(item *gofeed.Item) string {
		if media, ok := item.Extensions["media"]; ok {
			for _, ext := range media["description"] {
				if ext.Value != "" {
					return ext.Value
				}
			}
		}
		return ""
	},
	func(item *gofeed.Item) string {
		if dc := item.DublinCoreExt; dc != nil && len(dc.Description) > 0 {
			return dc.Description[0]
		}
		return ""
	},
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	doiPattern        = regexp.MustCompile(`10\.\d{4,9}/[-._;()/:a-zA-Z0-9]+`)
)

// ExtractAbstract tries each extractor in order and returns the first
// non-empty cleaned result.
func ExtractAbstract(item *gofeed.Item) string {
	for _, extract := range abstractExtractors {
		if raw := extract(item); raw != "" {
			if cleaned := cleanText(raw); cleaned != "" {
				return cleaned
			}
		}
	}
	return ""
}

// extractDOI pulls a DOI from the entry GUID or link when present.
func extractDOI(item *gofeed.Item) string {
	for _, candidate := range []string{item.GUID, item.Link} {
		if match := doiPattern.FindString(candidate); match != "" {
			return strings.TrimRight(match, ".")
		}
	}
	return ""
}

// cleanText strips markup and collapses whitespace.
func cleanText(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
