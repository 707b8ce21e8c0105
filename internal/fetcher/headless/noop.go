package headless

import (
	"context"

	"github.com/scrapeworks/jobscraper/internal/scraper"
)

// Noop implements scraper.Renderer but always reports that rendering is
// unavailable. It stands in when the engine mode never renders.
type Noop struct{}

// NewNoop creates a new Noop renderer.
func NewNoop() *Noop {
	return &Noop{}
}

// Render always fails with ErrRendererDisabled.
func (Noop) Render(_ context.Context, _ string) (*scraper.Page, error) {
	return nil, scraper.ErrRendererDisabled
}
