// Package fetcher drives one source definition against one entity through a
// headless browser and extracts candidate image URLs from the landing page.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/image-pipeline/internal/domain"
	"github.com/user/image-pipeline/internal/source"
)

// Fetcher runs browser-backed searches. Each Search call gets its own browser
// context, released on every exit path.
type Fetcher struct {
	navTimeout time.Duration
	allocOpts  []chromedp.ExecAllocatorOption
	logger     *zap.Logger
}

func New(navTimeout time.Duration, logger *zap.Logger) *Fetcher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", ""),
		chromedp.Flag("disable-dev-shm-usage", ""),
	)
	return &Fetcher{
		navTimeout: navTimeout,
		allocOpts:  opts,
		logger:     logger,
	}
}

// Search loads the source's search endpoint for the entity, follows the first
// result link, and returns deduplicated absolute http(s) candidate URLs from
// the landing page. Navigation errors and timeouts are returned so the caller
// can degrade the source to an empty result; a malformed page structure simply
// yields no candidates.
func (f *Fetcher) Search(ctx context.Context, e domain.Entity, def source.Definition) ([]domain.Candidate, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, f.allocOpts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	searchURL := def.SearchURL(e)
	searchHTML, err := f.capture(browserCtx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("source %s: load search page: %w", def.Name, err)
	}

	links, err := ExtractResultLinks(searchHTML, searchURL, def)
	if err != nil || len(links) == 0 {
		f.logger.Debug("no result links on search page",
			zap.String("source", def.Name), zap.Int64("entity_id", e.ID))
		return nil, nil
	}

	pageHTML, err := f.capture(browserCtx, links[0])
	if err != nil {
		return nil, fmt.Errorf("source %s: load result page: %w", def.Name, err)
	}

	urls := ExtractImageURLs(pageHTML, links[0], def)
	candidates := make([]domain.Candidate, 0, len(urls))
	for _, u := range urls {
		candidates = append(candidates, domain.Candidate{Source: def.Name, URL: u})
	}
	return candidates, nil
}

func (f *Fetcher) capture(ctx context.Context, pageURL string) (string, error) {
	navCtx, cancel := context.WithTimeout(ctx, f.navTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html),
	)
	return html, err
}
