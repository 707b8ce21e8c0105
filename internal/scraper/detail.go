package scraper

import (
	"regexp"
	"strings"
)

// Fixed selectors for the three text fields on a job detail page.
const (
	titleSelector    = "h1.top-card-layout__title"
	companySelector  = "a.topcard__org-name-link"
	postedAtSelector = "span.posted-time-ago__text"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// CollapseWhitespace trims the string and collapses interior whitespace runs
// to a single space. Applying it twice yields the same result as once.
func CollapseWhitespace(s string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
}

// ExtractJobRecord pulls the fixed field set out of a rendered detail page.
// The caller must have waited for the page's load-complete signal first;
// extraction against a partially loaded page yields empty or stale text.
// The three lookups are independent but all must match, otherwise the record
// fails with an ElementNotFoundError and the crawl moves on.
func ExtractJobRecord(page *Page) (JobRecord, error) {
	title, err := requiredText(page, "title", titleSelector)
	if err != nil {
		return JobRecord{}, err
	}
	company, err := requiredText(page, "company_name", companySelector)
	if err != nil {
		return JobRecord{}, err
	}
	postedAt, err := requiredText(page, "posted_at", postedAtSelector)
	if err != nil {
		return JobRecord{}, err
	}
	return JobRecord{
		Title:       title,
		CompanyName: company,
		PostedAt:    postedAt,
		URL:         page.URL,
	}, nil
}

func requiredText(page *Page, field, selector string) (string, error) {
	sel := page.Doc.Find(selector)
	if sel.Length() == 0 {
		return "", &ElementNotFoundError{Field: field, Selector: selector}
	}
	return CollapseWhitespace(sel.First().Text()), nil
}
