package scrapers

import (
	"fmt"

	"funcal/models"
)

// Constructor builds a custom scraper for a source descriptor.
type Constructor func(source *models.ScraperSource, fetcher *Fetcher) Scraper

// Registry resolves a scraper source to a concrete adapter. Sources with a
// scraper_class name dispatch to a registered custom constructor; everything
// else falls back to the selector-driven dynamic scraper.
type Registry struct {
	custom  map[string]Constructor
	fetcher *Fetcher
}

func NewRegistry(fetcher *Fetcher) *Registry {
	return &Registry{
		custom:  make(map[string]Constructor),
		fetcher: fetcher,
	}
}

// Register adds a custom scraper under its class name.
func (r *Registry) Register(name string, ctor Constructor) {
	r.custom[name] = ctor
}

// Resolve returns the adapter for the source, or an error when the source
// names a scraper class that was never registered. That is a configuration
// problem, not a transient one.
func (r *Registry) Resolve(source *models.ScraperSource) (Scraper, error) {
	if source.ScraperClass == "" {
		return NewDynamicScraper(source, r.fetcher), nil
	}

	ctor, ok := r.custom[source.ScraperClass]
	if !ok {
		return nil, fmt.Errorf("%w: unknown scraper class %q", ErrBadConfig, source.ScraperClass)
	}
	return ctor(source, r.fetcher), nil
}

// Registered returns the known custom class names.
func (r *Registry) Registered() []string {
	names := make([]string, 0, len(r.custom))
	for name := range r.custom {
		names = append(names, name)
	}
	return names
}
