// Package source holds the external image source definitions and the tiered
// fallback policy that picks candidates from them.
package source

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/user/image-pipeline/internal/domain"
)

// Tier ranks a source. Lower tiers are queried first; a lower-priority tier is
// reached only when every source above it yielded nothing.
type Tier int

const (
	TierManufacturer Tier = iota + 1
	TierRetailer
	TierSearch
)

// Definition describes one external source: how to build a search URL for an
// entity and which selectors yield result links and candidate images.
type Definition struct {
	Name      string
	Tier      Tier
	SearchURL func(e domain.Entity) string

	ResultLinkSelector   string
	PrimaryImageSelector string
	GalleryImageSelector string

	// LinkLimit caps how many search result links are considered.
	LinkLimit int
}

func (d Definition) validate() error {
	if d.Name == "" {
		return fmt.Errorf("source definition missing name")
	}
	if d.Tier <= 0 {
		return fmt.Errorf("source %q: tier must be positive", d.Name)
	}
	if d.SearchURL == nil {
		return fmt.Errorf("source %q: missing search URL template", d.Name)
	}
	if d.ResultLinkSelector == "" {
		return fmt.Errorf("source %q: missing result link selector", d.Name)
	}
	if d.PrimaryImageSelector == "" {
		return fmt.Errorf("source %q: missing primary image selector", d.Name)
	}
	if d.LinkLimit <= 0 {
		return fmt.Errorf("source %q: link limit must be positive", d.Name)
	}
	return nil
}

// Registry holds source definitions grouped by tier, loaded once at start.
type Registry struct {
	tiers [][]Definition
}

// NewRegistry validates the definitions and groups them by tier ascending,
// preserving registration order within a tier. A malformed definition is a
// fatal configuration error.
func NewRegistry(defs ...Definition) (*Registry, error) {
	byTier := make(map[Tier][]Definition)
	for _, d := range defs {
		if err := d.validate(); err != nil {
			return nil, err
		}
		byTier[d.Tier] = append(byTier[d.Tier], d)
	}

	ranks := make([]Tier, 0, len(byTier))
	for t := range byTier {
		ranks = append(ranks, t)
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] < ranks[j] })

	tiers := make([][]Definition, 0, len(ranks))
	for _, t := range ranks {
		tiers = append(tiers, byTier[t])
	}
	return &Registry{tiers: tiers}, nil
}

// Tiers returns the definitions grouped by tier, ascending.
func (r *Registry) Tiers() [][]Definition {
	return r.tiers
}

// DefaultRegistry builds the deployed source set: the manufacturer's own site
// search, a large retailer, and a generic image search as the last resort.
func DefaultRegistry() (*Registry, error) {
	return NewRegistry(
		Definition{
			Name: "manufacturer",
			Tier: TierManufacturer,
			SearchURL: func(e domain.Entity) string {
				return fmt.Sprintf("https://www.%s.com/search?q=%s",
					url.PathEscape(normalizeSlug(e.Brand)), url.QueryEscape(searchTerms(e)))
			},
			ResultLinkSelector:   "a.product-item-link, .product-item a, .search-result a",
			PrimaryImageSelector: ".product-image img, .gallery-placeholder img, img.product-main",
			GalleryImageSelector: ".product-gallery img, .thumbnails img",
			LinkLimit:            3,
		},
		Definition{
			Name: "retailer",
			Tier: TierRetailer,
			SearchURL: func(e domain.Entity) string {
				return "https://www.amazon.com/s?k=" + url.QueryEscape(searchTerms(e))
			},
			ResultLinkSelector:   "div.s-result-item h2 a, a.a-link-normal.s-no-outline",
			PrimaryImageSelector: "#landingImage, #imgTagWrapperId img",
			GalleryImageSelector: "#altImages img",
			LinkLimit:            3,
		},
		Definition{
			Name: "websearch",
			Tier: TierSearch,
			SearchURL: func(e domain.Entity) string {
				return "https://www.bing.com/images/search?q=" + url.QueryEscape(searchTerms(e))
			},
			ResultLinkSelector:   "a.iusc, .imgpt a",
			PrimaryImageSelector: ".mainImage img, img.nofocus",
			GalleryImageSelector: ".imgpt img",
			LinkLimit:            3,
		},
	)
}

func searchTerms(e domain.Entity) string {
	return e.Brand + " " + e.Model + " " + e.Category
}

// normalizeSlug turns a brand name into a bare domain label ("Acme Corp" ->
// "acmecorp").
func normalizeSlug(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		}
	}
	return string(out)
}
