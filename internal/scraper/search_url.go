package scraper

import (
	"fmt"
	"net/url"
)

// seedURLFormat fixes the parameter order of the search page URL. The three
// trailing parameters are constants LinkedIn expects on public searches.
const seedURLFormat = "https://www.linkedin.com/jobs/search" +
	"?keywords=%s&location=%s" +
	"&trk=public_jobs_jobs-search-bar_search-submit&position=1&pageNum=0"

// BuildSeedURL composes the search-results URL for a title and location.
// Both values are query-encoded (spaces become '+'); the function is total
// over any string input.
func BuildSeedURL(title, location string) string {
	return fmt.Sprintf(seedURLFormat, url.QueryEscape(title), url.QueryEscape(location))
}
