package feed

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dmorgan81/imagine/internal/handler"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/gorilla/feeds"
	"github.com/samber/do"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

type Generator struct {
	now func() time.Time
}

func NewGenerator(*do.Injector) (*Generator, error) {
	return &Generator{now: time.Now}, nil
}

func fileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// Generate renders one batch as an RSS document with an item per image.
func (g *Generator) Generate(ctx context.Context, out handler.Output) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("feed").With("batch", out.BatchID)
	log.Info("generating rss feed")

	now := lo.Ternary(g.now != nil, g.now, time.Now)()
	feed := feeds.Feed{
		Title:       "imagine",
		Description: fmt.Sprintf("AI generated images for %q", out.Prompt),
		Link:        &feeds.Link{Href: "https://pollinations.ai"},
		Id:          out.BatchID,
		Created:     now,
		Updated:     now,
	}

	items := make([]*feeds.Item, len(out.Images))
	group, _ := errgroup.WithContext(ctx)
	for i, path := range out.Images {
		group.Go(func() error {
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
			seed := int64(-1)
			if i < len(out.Seeds) {
				seed = out.Seeds[i]
			}
			contentType := mime.TypeByExtension(filepath.Ext(path))
			items[i] = &feeds.Item{
				Title:       fmt.Sprintf("%s:%s:%d", out.Prompt, out.Model, seed),
				Link:        &feeds.Link{Href: fileURL(path)},
				Id:          filepath.Base(path),
				Description: fmt.Sprintf("%s, %dx%d, seed %d", out.Style, out.Width, out.Height, seed),
				Created:     info.ModTime(),
				Updated:     info.ModTime(),
				Enclosure: &feeds.Enclosure{
					Url:    fileURL(path),
					Length: strconv.FormatInt(info.Size(), 10),
					Type:   lo.Ternary(contentType != "", contentType, "application/octet-stream"),
				},
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	feed.Items = items
	rss, err := feed.ToRss()
	return []byte(rss), err
}
