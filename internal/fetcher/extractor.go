package fetcher

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/image-pipeline/internal/source"
)

// ExtractResultLinks parses a search result page and returns up to LinkLimit
// absolute result links matching the source's link selector.
func ExtractResultLinks(htmlContent, pageURL string, def source.Definition) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find(def.ResultLinkSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return true
		}
		abs, ok := resolveHTTP(base, href)
		if ok {
			links = append(links, abs)
		}
		return len(links) < def.LinkLimit
	})
	return links, nil
}

// ExtractImageURLs parses a landing page and returns candidate image URLs:
// primary selector matches first, then gallery matches, deduplicated and
// filtered to absolute http(s) URLs.
func ExtractImageURLs(htmlContent, pageURL string, def source.Definition) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var urls []string
	collect := func(_ int, s *goquery.Selection) {
		src, exists := s.Attr("src")
		if !exists || src == "" {
			// Lazy-loaded galleries put the real URL in data-src.
			src, _ = s.Attr("data-src")
		}
		if src == "" {
			return
		}
		abs, ok := resolveHTTP(base, src)
		if !ok {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		urls = append(urls, abs)
	}

	doc.Find(def.PrimaryImageSelector).Each(collect)
	if def.GalleryImageSelector != "" {
		doc.Find(def.GalleryImageSelector).Each(collect)
	}
	return urls
}

// resolveHTTP resolves ref against base and keeps only http(s) results.
func resolveHTTP(base *url.URL, ref string) (string, bool) {
	refURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(refURL)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}
