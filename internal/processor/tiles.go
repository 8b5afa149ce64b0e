package processor

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"sync"

	"github.com/woozymasta/geoview/internal/render"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"
)

// TilesDir is the tile pyramid directory inside a dataset directory.
const TilesDir = "tiles"

// Tile pyramid limits.
const (
	DefaultTileSize = 256
	MaxTileZoom     = 4
)

// TileCoordinate represents a specific tile.
type TileCoordinate struct {
	Z, X, Y int
}

// Path returns the tile file path below baseDir.
func (c TileCoordinate) Path(baseDir string) string {
	return filepath.Join(
		baseDir,
		fmt.Sprintf("%d", c.Z),
		fmt.Sprintf("%d", c.X),
		fmt.Sprintf("%d", c.Y)+".webp")
}

// WriteTiles rasterizes the view once at the deepest zoom level and slices it
// into a z/x/y pyramid of WebP tiles. Tile zoom is relative to the dataset
// extent: level 0 is one tile covering the whole view.
func WriteTiles(view render.RenderedView, baseDir string, zoomLimit, tileSize int, force bool) ([]TileCoordinate, error) {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	if zoomLimit < 0 || zoomLimit > MaxTileZoom {
		return nil, fmt.Errorf("tile zoom %d out of range [0,%d]", zoomLimit, MaxTileZoom)
	}

	full := tileSize << zoomLimit
	srcImg, err := render.Rasterize(view, full, full)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("px", full).
		Int("zoom_limit", zoomLimit).
		Msg("Preview rasterized, starting tiling")

	var (
		mu      sync.Mutex
		written []TileCoordinate
	)

	for z := 0; z <= zoomLimit; z++ {
		// Grid size: 2^z
		gridSize := 1 << z
		totalPixels := gridSize * tileSize

		var level image.Image = srcImg
		if totalPixels != full {
			dst := image.NewRGBA(image.Rect(0, 0, totalPixels, totalPixels))
			xdraw.CatmullRom.Scale(dst, dst.Bounds(), srcImg, srcImg.Bounds(), draw.Over, nil)
			level = dst
		}
		sub := level.(interface {
			SubImage(r image.Rectangle) image.Image
		})

		var wg sync.WaitGroup
		// Simple semaphore to limit file I/O concurrency
		sem := make(chan struct{}, 20)
		errs := make(chan error, gridSize*gridSize)

		for x := 0; x < gridSize; x++ {
			for y := 0; y < gridSize; y++ {
				wg.Add(1)
				sem <- struct{}{}

				go func(c TileCoordinate) {
					defer wg.Done()
					defer func() { <-sem }()

					rect := image.Rect(c.X*tileSize, c.Y*tileSize, (c.X+1)*tileSize, (c.Y+1)*tileSize)
					ok, err := writeTile(sub.SubImage(rect), c.Path(baseDir), force)
					if err != nil {
						errs <- err
						return
					}
					if ok {
						mu.Lock()
						written = append(written, c)
						mu.Unlock()
					}
				}(TileCoordinate{Z: z, X: x, Y: y})
			}
		}
		wg.Wait()
		close(errs)

		if err := <-errs; err != nil {
			return written, err
		}
	}

	return written, nil
}

// writeTile reports whether a file was written; existing tiles are kept unless force.
func writeTile(img image.Image, outPath string, force bool) (bool, error) {
	if !force {
		if info, err := os.Stat(outPath); err == nil && info.Size() > 0 {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return false, err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	if err := webp.Encode(f, img, &webp.Options{Lossless: false, Quality: 80}); err != nil {
		return false, err
	}

	return true, nil
}
