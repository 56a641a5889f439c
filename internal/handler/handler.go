package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/dmorgan81/imagine/internal/batch"
	"github.com/dmorgan81/imagine/internal/image"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/dmorgan81/imagine/internal/prompt"
	"github.com/dmorgan81/imagine/internal/seed"
	"github.com/samber/do"
	"github.com/samber/lo"
)

const (
	DefaultWidth  = 1024
	DefaultHeight = 1024
)

// Input is a generation request as it arrives over JSON. Unset fields take
// the defaults of the interactive generator.
type Input struct {
	Prompt        string `json:"prompt,omitempty"`
	Style         string `json:"style,omitempty"`
	Model         string `json:"model,omitempty"`
	Seed          *int64 `json:"seed,omitempty"`
	Width         *int   `json:"width,omitempty"`
	Height        *int   `json:"height,omitempty"`
	Count         *int   `json:"count,omitempty"`
	EnhancePrompt bool   `json:"enhance_prompt,omitempty"`
	EnhanceImage  bool   `json:"enhance_image,omitempty"`
	NoLogo        *bool  `json:"nologo,omitempty"`
	Private       *bool  `json:"private,omitempty"`
	Safe          bool   `json:"safe,omitempty"`
	Random        bool   `json:"random,omitempty"`
}

func (i Input) toRequest() batch.Request {
	return batch.Request{
		Prompt:           i.Prompt,
		Style:            prompt.Style(i.Style),
		Model:            image.Model(i.Model),
		Seed:             lo.FromPtrOr(i.Seed, seed.Random),
		Width:            lo.FromPtrOr(i.Width, DefaultWidth),
		Height:           lo.FromPtrOr(i.Height, DefaultHeight),
		EnhanceImage:     i.EnhanceImage,
		NoLogo:           lo.FromPtrOr(i.NoLogo, true),
		Private:          lo.FromPtrOr(i.Private, true),
		Safe:             i.Safe,
		UseAIEnhancement: i.EnhancePrompt,
		Count:            lo.FromPtrOr(i.Count, 1),
	}
}

type Output struct {
	BatchID  string   `json:"batch_id"`
	Prompt   string   `json:"prompt"`
	Style    string   `json:"style"`
	Model    string   `json:"model"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Images   []string `json:"images"`
	Seeds    []int64  `json:"seeds"`
	Failures []string `json:"failures"`
}

type Generator interface {
	Generate(context.Context, batch.Request) (*batch.Result, error)
}

type Handler struct {
	randomizer *prompt.Randomizer
	generator  Generator
}

func NewHandler(i *do.Injector) (*Handler, error) {
	return &Handler{
		randomizer: do.MustInvoke[*prompt.Randomizer](i),
		generator:  do.MustInvoke[*batch.Orchestrator](i),
	}, nil
}

func (h *Handler) Handle(ctx context.Context, input Input) (Output, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("handler").With("input", input)
	log.Info("handling generation request")

	if strings.TrimSpace(input.Prompt) == "" && input.Random {
		if h.randomizer == nil {
			return Output{}, errors.New("no example prompts configured")
		}
		model, prompt, err := h.randomizer.Randomize(ctx)
		if err != nil {
			return Output{}, err
		}
		input.Model = lo.Ternary(input.Model != "", input.Model, model)
		input.Prompt = prompt
		log.Info("picked example prompt", "prompt", prompt, "model", input.Model)
	}

	result, err := h.generator.Generate(ctx, input.toRequest())
	if err != nil {
		return Output{}, err
	}

	return Output{
		BatchID:  result.BatchID,
		Prompt:   result.Prompt,
		Style:    string(result.Request.Style),
		Model:    string(result.Request.Model),
		Width:    result.Request.Width,
		Height:   result.Request.Height,
		Images:   result.Images,
		Seeds:    result.Seeds(),
		Failures: result.Failures,
	}, nil
}
