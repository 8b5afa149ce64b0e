package server

import (
	"context"
	"sort"

	"github.com/woozymasta/geoview/internal/config"
	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/reader"
	"github.com/woozymasta/geoview/internal/render"

	"github.com/rs/zerolog/log"
)

// Dataset is a loaded dataset with its effective style.
type Dataset struct {
	Config     config.Dataset
	Source     reader.Source
	Collection *geo.FeatureCollection
	Style      render.Style
}

// DatasetInfo is the public summary served by the dataset list endpoint.
type DatasetInfo struct {
	Name        string        `json:"name"`
	Title       string        `json:"title,omitempty"`
	Attribution string        `json:"attribution,omitempty"`
	Format      geo.Format    `json:"format"`
	CRS         string        `json:"crs"`
	Features    int           `json:"features"`
	Bounds      render.Extent `json:"bounds"`
	Properties  []string      `json:"properties"`
}

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config       *config.Config
	NameResolver map[string]string
	Datasets     map[string]*Dataset
	Order        []string
	IndexHTML    []byte
}

// NewServerContext loads every configured dataset through the cache.
// Datasets that fail to load or have no features are skipped with a warning.
func NewServerContext(ctx context.Context, cfg *config.Config, fetcher reader.Fetcher, cache *reader.Cache, index []byte) *ServerContext {
	log.Info().Int("config_datasets_count", len(cfg.Datasets)).Msg("Initializing server context")

	s := &ServerContext{
		Config:       cfg,
		NameResolver: make(map[string]string),
		Datasets:     make(map[string]*Dataset),
		IndexHTML:    index,
	}

	valid := make([]config.Dataset, 0, len(cfg.Datasets))
	for _, d := range cfg.Datasets {
		if d.Attribution == "" {
			d.Attribution = cfg.Attribution
		}

		src, err := d.Source(fetcher)
		if err != nil {
			log.Warn().Err(err).Str("dataset", d.Name).Msg("Skipping dataset: source not available")
			continue
		}

		fc, err := cache.Read(ctx, src)
		if err != nil {
			log.Warn().Err(err).Str("dataset", d.Name).Msg("Skipping dataset: read failed")
			continue
		}
		if fc.IsEmpty() {
			log.Warn().Str("dataset", d.Name).Msg("Skipping dataset: no features")
			continue
		}

		// Setup Resolver
		s.NameResolver[d.Name] = d.Name
		for _, alias := range d.Aliases {
			s.NameResolver[alias] = d.Name
		}

		s.Datasets[d.Name] = &Dataset{
			Config:     d,
			Source:     src,
			Collection: fc,
			Style:      cfg.DatasetStyle(d),
		}

		log.Debug().
			Str("dataset", d.Name).
			Str("format", string(fc.Format())).
			Int("features", fc.Len()).
			Msg("Dataset loaded and added to context")

		valid = append(valid, d)
	}

	sort.SliceStable(valid, func(i, j int) bool {
		idxI, idxJ := 999999, 999999
		if valid[i].Index != nil {
			idxI = *valid[i].Index
		}
		if valid[j].Index != nil {
			idxJ = *valid[j].Index
		}
		if idxI != idxJ {
			return idxI < idxJ
		}

		return valid[i].Name < valid[j].Name
	})
	for _, d := range valid {
		s.Order = append(s.Order, d.Name)
	}

	stats := cache.Stats()
	log.Info().
		Int("valid_datasets_count", len(s.Order)).
		Int("cache_entries", stats.Entries).
		Msg("Server context initialized successfully")

	return s
}

// Info summarizes a loaded dataset.
func (d *Dataset) Info() DatasetInfo {
	b := d.Collection.Bound()
	return DatasetInfo{
		Name:        d.Config.Name,
		Title:       d.Config.Title,
		Attribution: d.Config.Attribution,
		Format:      d.Collection.Format(),
		CRS:         d.Collection.CRS(),
		Features:    d.Collection.Len(),
		Bounds:      render.Extent{MinX: b.Min[0], MinY: b.Min[1], MaxX: b.Max[0], MaxY: b.Max[1]},
		Properties:  d.Collection.PropertyKeys(),
	}
}
