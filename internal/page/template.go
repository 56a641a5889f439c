package page

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"net/url"
	"path/filepath"
	"sync"

	"github.com/dmorgan81/imagine/internal/log"
	"github.com/samber/do"
)

//go:embed assets/gallery.html
var galleryTmpl string

type Image struct {
	Path string
	Seed int64
}

// Src is a file URL for the staged image.
func (i Image) Src() template.URL {
	path, err := filepath.Abs(i.Path)
	if err != nil {
		path = i.Path
	}
	return template.URL((&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String())
}

type Params struct {
	BatchID  string
	Prompt   string
	Style    string
	Model    string
	Width    int
	Height   int
	Images   []Image
	Failures []string
}

type Templator struct {
	tmpl *template.Template
	once sync.Once
}

func NewTemplator(*do.Injector) (*Templator, error) {
	return &Templator{}, nil
}

func (g *Templator) Template(ctx context.Context, params Params) ([]byte, error) {
	g.once.Do(func() {
		g.tmpl = template.Must(template.New("gallery").Parse(galleryTmpl))
	})

	log := log.FromContextOrDiscard(ctx).WithGroup("templator")
	log.Info("generating gallery page", "images", len(params.Images))

	var data bytes.Buffer
	if err := g.tmpl.Execute(&data, params); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}
