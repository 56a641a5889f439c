package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmorgan81/imagine/internal/handler"
	"github.com/dmorgan81/imagine/internal/prompt"
	"github.com/dmorgan81/imagine/internal/seed"
	"github.com/samber/do"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type generateOptions struct {
	style         string
	model         string
	seed          int64
	width         int
	height        int
	count         int
	enhancePrompt bool
	enhanceImage  bool
	noLogo        bool
	private       bool
	safe          bool
	random        bool
	format        string
	output        string
}

var genOpts generateOptions

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate one or more images for a prompt",
	Long: `Generate fans out one request per image to the image provider, staging every
successful image in the staging directory. Failed images are reported without
failing the batch unless every image failed.`,
	RunE: generateCommand,
}

func init() {
	styles := strings.Join(lo.Map(prompt.Styles(), func(s prompt.Style, _ int) string { return string(s) }), ", ")

	f := generateCmd.Flags()
	f.StringVar(&genOpts.style, "style", string(prompt.StyleNone), "image style: "+styles)
	f.StringVar(&genOpts.model, "model", "flux", "image model: flux, turbo")
	f.Int64Var(&genOpts.seed, "seed", seed.Random, "base seed, -1 for a random seed per image")
	f.IntVar(&genOpts.width, "width", handler.DefaultWidth, "image width (256-2048)")
	f.IntVar(&genOpts.height, "height", handler.DefaultHeight, "image height (256-2048)")
	f.IntVarP(&genOpts.count, "count", "n", 1, "number of images")
	f.BoolVar(&genOpts.enhancePrompt, "enhance-prompt", false, "rewrite the prompt with an LLM before generating")
	f.BoolVar(&genOpts.enhanceImage, "enhance-image", false, "ask the image provider to enhance the prompt")
	f.BoolVar(&genOpts.noLogo, "nologo", true, "remove the provider logo")
	f.BoolVar(&genOpts.private, "private", true, "keep images out of the public feed")
	f.BoolVar(&genOpts.safe, "safe", false, "enable the provider's safety filter")
	f.BoolVar(&genOpts.random, "random", false, "use a random example prompt when none is given")
	f.StringVar(&genOpts.format, "format", formatText, "output format: text, json, html, rss")
	f.StringVarP(&genOpts.output, "output", "o", "", "write the rendered output to a file instead of stdout")
}

func (o generateOptions) input(args []string) handler.Input {
	return handler.Input{
		Prompt:        strings.Join(args, " "),
		Style:         o.style,
		Model:         o.model,
		Seed:          lo.ToPtr(o.seed),
		Width:         lo.ToPtr(o.width),
		Height:        lo.ToPtr(o.height),
		Count:         lo.ToPtr(o.count),
		EnhancePrompt: o.enhancePrompt,
		EnhanceImage:  o.enhanceImage,
		NoLogo:        lo.ToPtr(o.noLogo),
		Private:       lo.ToPtr(o.private),
		Safe:          o.safe,
		Random:        o.random,
	}
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if !lo.Contains(formats, genOpts.format) {
		return fmt.Errorf("unknown format %q", genOpts.format)
	}

	out, err := do.MustInvoke[*handler.Handler](injector).Handle(ctx, genOpts.input(args))
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if genOpts.output != "" {
		f, err := os.Create(genOpts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return render(ctx, injector, w, genOpts.format, out)
}
