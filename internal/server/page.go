package server

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/woozymasta/geoview/assets"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

// PageData fills the viewer page template.
type PageData struct {
	Title string
	CSS   string
	JS    string
}

// BuildIndex renders the viewer page with inlined, minified CSS and JS.
func BuildIndex(title string) ([]byte, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)

	cssMin, err := m.String("text/css", assets.Style)
	if err != nil {
		return nil, fmt.Errorf("minify CSS: %w", err)
	}
	jsMin, err := m.String("text/javascript", assets.Script)
	if err != nil {
		return nil, fmt.Errorf("minify JS: %w", err)
	}

	tmpl, err := template.New("index").Parse(assets.IndexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, PageData{
		Title: title,
		CSS:   cssMin,
		JS:    jsMin,
	})
	if err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	page, err := m.Bytes("text/html", buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("minify HTML: %w", err)
	}

	return page, nil
}
