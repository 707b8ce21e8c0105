package scraper

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// resultsListSelector matches anchors inside the search results list. Anchors
// elsewhere on the page (navigation, footer, related searches) are ignored.
const resultsListSelector = "ul.jobs-search__results-list a[href]"

// DiscoverLinks extracts the detail-page URLs referenced by a search-results
// page, in document order, duplicates preserved. Relative hrefs are resolved
// against the page URL. Zero matches returns an empty slice: a missing list
// means layout drift or no results, not an error.
func DiscoverLinks(page *Page) []string {
	base, err := url.Parse(page.URL)
	if err != nil {
		base = nil
	}
	links := make([]string, 0)
	page.Doc.Find(resultsListSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		links = append(links, absoluteURL(base, href))
	})
	return links
}

func absoluteURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() || base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
