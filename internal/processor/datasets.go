// Package processor ingests configured datasets and writes their normalized form to disk.
package processor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/woozymasta/geoview/internal/config"
	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/reader"
	"github.com/woozymasta/geoview/internal/render"

	"github.com/rs/zerolog/log"
)

// Output file names inside a dataset directory.
const (
	FeaturesFile = "features.geojson"
	PreviewFile  = "preview.webp"
)

// Options controls ProcessDataset.
type Options struct {
	OutputDir     string
	Force         bool // overwrite existing output
	Preview       bool // also write a raster preview
	PreviewWidth  int
	PreviewHeight int
	Tiles         bool // also write a tile pyramid of the preview
	TileZoom      int
	TileSize      int
}

// ProcessDataset reads a dataset and writes it as normalized GeoJSON,
// optionally with a WebP preview and tile pyramid rendered in the dataset style.
func ProcessDataset(ctx context.Context, fetcher reader.Fetcher, cfg *config.Config, d config.Dataset, opts Options) error {
	destDir := filepath.Join(opts.OutputDir, d.Name)
	destFile := filepath.Join(destDir, FeaturesFile)

	// Check if file exists
	if _, err := os.Stat(destFile); err == nil {
		if !opts.Force {
			log.Debug().Str("dataset", d.Name).Msg("Features file exists, skipping")
			return nil
		}
	}

	src, err := d.Source(fetcher)
	if err != nil {
		return err
	}

	log.Info().
		Str("dataset", d.Name).
		Str("format", string(src.Format())).
		Str("source", src.Location()).
		Msg("Processing dataset")

	fc, err := src.Read(ctx)
	if err != nil {
		return err
	}

	if err := saveGeoJSON(destDir, destFile, fc); err != nil {
		return err
	}

	log.Info().
		Str("dataset", d.Name).
		Int("features", fc.Len()).
		Str("crs", fc.CRS()).
		Str("path", destFile).
		Msg("Dataset normalized")

	if (!opts.Preview && !opts.Tiles) || fc.IsEmpty() {
		return nil
	}

	view, err := render.Render(fc, cfg.DatasetStyle(d))
	if err != nil {
		return err
	}

	if opts.Preview {
		if err := savePreview(filepath.Join(destDir, PreviewFile), view, opts); err != nil {
			return err
		}
	}

	if opts.Tiles {
		tiles, err := WriteTiles(view, filepath.Join(destDir, TilesDir), opts.TileZoom, opts.TileSize, opts.Force)
		if err != nil {
			return err
		}
		log.Info().Str("dataset", d.Name).Int("tiles", len(tiles)).Msg("Tile pyramid written")
	}

	return nil
}

// saveGeoJSON marshals the feature collection and writes it to disk.
func saveGeoJSON(dir, path string, fc *geo.FeatureCollection) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
		}
	}()

	return json.NewEncoder(f).Encode(fc.GeoJSON())
}

func savePreview(path string, view render.RenderedView, opts Options) error {
	width, height := opts.PreviewWidth, opts.PreviewHeight
	if width <= 0 {
		width = 512
	}
	if height <= 0 {
		height = 512
	}

	img, err := render.Rasterize(view, width, height)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := render.EncodePreview(f, img); err != nil {
		return err
	}

	log.Debug().Str("path", path).Int("width", width).Int("height", height).Msg("Preview written")
	return nil
}
