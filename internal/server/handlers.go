// Package server handles HTTP requests and middleware.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/woozymasta/geoview/internal/reader"
	"github.com/woozymasta/geoview/internal/render"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
)

// Preview size limits for the preview endpoint.
const (
	defaultPreviewSize = 512
	maxPreviewSize     = 2048
)

// HandleDatasetList serves summaries of the loaded datasets in display order.
func (s *ServerContext) HandleDatasetList(w http.ResponseWriter, r *http.Request) {
	list := make([]DatasetInfo, 0, len(s.Order))
	for _, name := range s.Order {
		list = append(list, s.Datasets[name].Info())
	}

	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(list)
}

// HandleIndex serves the viewer page.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && strings.Contains(r.URL.Path, ".") {
		http.NotFound(w, r)
		return
	}

	etag := fmt.Sprintf(`"%x"`, len(s.IndexHTML))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

// HandleDataset serves per-dataset resources.
func (s *ServerContext) HandleDataset(w http.ResponseWriter, r *http.Request) {
	// Path: /api/datasets/{name}/{resource}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 {
		http.NotFound(w, r)
		return
	}

	realName, ok := s.NameResolver[parts[2]]
	if !ok {
		http.NotFound(w, r)
		return
	}
	d := s.Datasets[realName]

	switch parts[3] {
	case "view":
		s.serveView(w, r, d)
	case "features.geojson":
		s.serveFeatures(w, r, d)
	case "preview.webp":
		s.servePreview(w, r, d)
	case "metadata":
		s.serveMetadata(w, r, d)
	default:
		http.NotFound(w, r)
	}
}

func (s *ServerContext) serveView(w http.ResponseWriter, r *http.Request, d *Dataset) {
	var (
		view render.RenderedView
		err  error
	)

	if q := r.URL.Query().Get("bbox"); q != "" {
		b, perr := ParseBBox(q)
		if perr != nil {
			http.Error(w, perr.Error(), http.StatusBadRequest)
			return
		}
		view, err = render.RenderBounds(d.Collection, d.Style, b)
	} else {
		view, err = render.Render(d.Collection, d.Style)
	}
	if err != nil {
		writeRenderError(w, d.Config.Name, err)
		return
	}

	writeJSON(w, "application/json", view)
}

func (s *ServerContext) serveFeatures(w http.ResponseWriter, r *http.Request, d *Dataset) {
	writeJSON(w, "application/geo+json", d.Collection.GeoJSON())
}

func (s *ServerContext) servePreview(w http.ResponseWriter, r *http.Request, d *Dataset) {
	width, err := sizeParam(r, "w")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	height, err := sizeParam(r, "h")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	view, err := render.Render(d.Collection, d.Style)
	if err != nil {
		writeRenderError(w, d.Config.Name, err)
		return
	}

	img, err := render.Rasterize(view, width, height)
	if err != nil {
		writeRenderError(w, d.Config.Name, err)
		return
	}

	var buf bytes.Buffer
	if err := render.EncodePreview(&buf, img); err != nil {
		log.Error().Err(err).Str("dataset", d.Config.Name).Msg("Failed to encode preview")
		http.Error(w, "preview encoding failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(buf.Bytes())
}

func (s *ServerContext) serveMetadata(w http.ResponseWriter, r *http.Request, d *Dataset) {
	shp, ok := d.Source.(reader.ShapefileSource)
	if !ok {
		http.Error(w, "ancillary metadata exists only for shapefile datasets", http.StatusNotFound)
		return
	}

	files, err := reader.AncillaryMetadata(shp.Dir)
	if err != nil {
		log.Error().Err(err).Str("dataset", d.Config.Name).Msg("Failed to read ancillary metadata")
		http.Error(w, "metadata unavailable", http.StatusServiceUnavailable)
		return
	}

	list := make([]reader.AncillaryFile, 0, len(files))
	for _, name := range reader.AncillaryNames(files) {
		list = append(list, files[name])
	}

	writeJSON(w, "application/json", list)
}

// ParseBBox parses "minx,miny,maxx,maxy".
func ParseBBox(s string) (orb.Bound, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox must have 4 comma separated numbers, got %d", len(fields))
	}

	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox value %q: %w", f, err)
		}
		v[i] = n
	}
	if v[0] > v[2] || v[1] > v[3] {
		return orb.Bound{}, errors.New("bbox min must not exceed max")
	}

	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}

func sizeParam(r *http.Request, name string) (int, error) {
	q := r.URL.Query().Get(name)
	if q == "" {
		return defaultPreviewSize, nil
	}

	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 || n > maxPreviewSize {
		return 0, fmt.Errorf("%s must be an integer in (0,%d]", name, maxPreviewSize)
	}
	return n, nil
}

func writeRenderError(w http.ResponseWriter, name string, err error) {
	var styleErr *render.InvalidStyleError
	switch {
	case errors.Is(err, render.ErrEmptyCollection):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &styleErr):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		log.Error().Err(err).Str("dataset", name).Msg("Render failed")
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, contentType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(data)
}
