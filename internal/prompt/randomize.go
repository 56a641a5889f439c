package prompt

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/dmorgan81/imagine/internal/log"
	"github.com/samber/do"
	"github.com/samber/lo"
)

// Examples are offered when the user asks for a random prompt.
var Examples = []string{
	"A serene mountain lake with reflections of autumn trees",
	"A futuristic city with flying vehicles and holographic billboards",
	"A magical library with floating books and glowing orbs of light",
	"An underwater scene with bioluminescent creatures and coral",
	"A steampunk-inspired train station with brass mechanisms and steam",
}

var errNoPrompts = errors.New("no example prompts available")

type Randomizer struct {
	prompts []string
}

func NewRandomizer(i *do.Injector) (*Randomizer, error) {
	extra := do.MustInvokeNamed[[]string](i, "prompts")
	return &Randomizer{prompts: lo.Uniq(append(lo.Compact(extra), Examples...))}, nil
}

func (r *Randomizer) Prompts() []string {
	return r.prompts
}

// Randomize picks an example. Entries written as "model|prompt" also pick the
// model; plain entries return an empty model.
func (r *Randomizer) Randomize(ctx context.Context) (string, string, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("randomizer")
	log.Info("getting random example prompt")
	if len(r.prompts) == 0 {
		return "", "", errNoPrompts
	}
	entry := r.prompts[rand.IntN(len(r.prompts))]
	if model, prompt, ok := strings.Cut(entry, "|"); ok {
		return strings.TrimSpace(model), strings.TrimSpace(prompt), nil
	}
	return "", entry, nil
}
