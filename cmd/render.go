package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dmorgan81/imagine/internal/feed"
	"github.com/dmorgan81/imagine/internal/handler"
	"github.com/dmorgan81/imagine/internal/page"
	"github.com/samber/do"
	"github.com/samber/lo"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatHTML = "html"
	formatRSS  = "rss"
)

var formats = []string{formatText, formatJSON, formatHTML, formatRSS}

func pageParams(out handler.Output) page.Params {
	return page.Params{
		BatchID: out.BatchID,
		Prompt:  out.Prompt,
		Style:   out.Style,
		Model:   out.Model,
		Width:   out.Width,
		Height:  out.Height,
		Images: lo.Map(out.Images, func(path string, n int) page.Image {
			return page.Image{Path: path, Seed: out.Seeds[n]}
		}),
		Failures: out.Failures,
	}
}

func render(ctx context.Context, i *do.Injector, w io.Writer, format string, out handler.Output) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case formatHTML:
		html, err := do.MustInvoke[*page.Templator](i).Template(ctx, pageParams(out))
		if err != nil {
			return err
		}
		_, err = w.Write(html)
		return err
	case formatRSS:
		rss, err := do.MustInvoke[*feed.Generator](i).Generate(ctx, out)
		if err != nil {
			return err
		}
		_, err = w.Write(rss)
		return err
	default:
		fmt.Fprintf(w, "prompt: %s\n", out.Prompt)
		for n, path := range out.Images {
			fmt.Fprintf(w, "%s\tseed=%d\n", path, out.Seeds[n])
		}
		for _, failure := range out.Failures {
			fmt.Fprintf(w, "warning: %s\n", failure)
		}
		return nil
	}
}
