package locator

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

//go:embed assets
var assets embed.FS

// MapConfig is the client map setup embedded in the page.
type MapConfig struct {
	TileURL     string
	Attribution string
}

type pageData struct {
	View View
	Map  MapConfig
	CSS  template.CSS
	JS   template.JS
	Pin  template.HTML
}

// Renderer turns session views into minified HTML. Static assets are
// minified once at construction.
type Renderer struct {
	m    *minify.M
	tmpl *template.Template
	cfg  MapConfig
	css  template.CSS
	js   template.JS
	pin  template.HTML
}

// NewRenderer parses the embedded templates and minifies the static assets.
func NewRenderer(cfg MapConfig) (*Renderer, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)

	cssMin, err := minifyAsset(m, "text/css", "assets/style.css")
	if err != nil {
		return nil, err
	}
	jsMin, err := minifyAsset(m, "text/javascript", "assets/script.js")
	if err != nil {
		return nil, err
	}
	svgMin, err := minifyAsset(m, "image/svg+xml", "assets/pin.svg")
	if err != nil {
		return nil, err
	}

	tmpl, err := template.ParseFS(assets, "assets/*.html.tpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Renderer{
		m:    m,
		tmpl: tmpl,
		cfg:  cfg,
		css:  template.CSS(cssMin),
		js:   template.JS(jsMin),
		pin:  template.HTML(svgMin),
	}, nil
}

func minifyAsset(m *minify.M, mediatype, name string) (string, error) {
	raw, err := assets.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	out, err := m.String(mediatype, string(raw))
	if err != nil {
		return "", fmt.Errorf("minify %s: %w", name, err)
	}
	return out, nil
}

// Page renders the full locator page.
func (r *Renderer) Page(w io.Writer, v View) error {
	return r.render(w, "page", v)
}

// Panel renders only the side panel: the result list or the outlet detail.
func (r *Renderer) Panel(w io.Writer, v View) error {
	return r.render(w, "panel", v)
}

func (r *Renderer) render(w io.Writer, name string, v View) error {
	var buf bytes.Buffer
	err := r.tmpl.ExecuteTemplate(&buf, name, pageData{
		View: v,
		Map:  r.cfg,
		CSS:  r.css,
		JS:   r.js,
		Pin:  r.pin,
	})
	if err != nil {
		return fmt.Errorf("execute %s template: %w", name, err)
	}

	if err := r.m.Minify("text/html", w, &buf); err != nil {
		return fmt.Errorf("minify %s: %w", name, err)
	}
	return nil
}
