package scraper

// ResultsDetector promotes a discovery page to a rendered re-fetch when the
// static HTML carries no results list, which LinkedIn serves to clients it
// suspects of not running JavaScript.
type ResultsDetector struct{}

// NewResultsDetector constructs a ResultsDetector.
func NewResultsDetector() *ResultsDetector {
	return &ResultsDetector{}
}

// ShouldRender reports whether the page needs the renderer.
func (ResultsDetector) ShouldRender(page *Page) bool {
	if page == nil || page.Doc == nil || page.Rendered {
		return false
	}
	return page.Doc.Find(resultsListSelector).Length() == 0
}
