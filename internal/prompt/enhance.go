package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmorgan81/imagine/internal/log"
)

const systemInstruction = "You are a creative assistant that enhances image prompts. Without comments"

// Enhancer rewrites a prompt for an image model, following the style hint.
type Enhancer interface {
	Enhance(context.Context, string, Style) (string, error)
}

func userInstruction(prompt string, style Style) string {
	return fmt.Sprintf("Enhance this prompt for an AI image generator: '%s' Style: %s. "+
		"Make it detailed and vivid but keep it concise (max 100 words).", prompt, style)
}

// EnhanceOrKeep never fails: any enhancer error, or a blank answer, yields the
// original prompt. Without a prompt, a style or an enhancer nothing is called.
func EnhanceOrKeep(ctx context.Context, enhancer Enhancer, prompt string, style Style) string {
	if prompt == "" || style == "" || enhancer == nil {
		return prompt
	}

	log := log.FromContextOrDiscard(ctx).WithGroup("enhance").With("style", style)
	log.Info("enhancing prompt")

	enhanced, err := enhancer.Enhance(ctx, prompt, style)
	if err != nil {
		log.Warn("prompt enhancement failed, keeping original prompt", "error", err)
		return prompt
	}
	enhanced = strings.TrimSpace(enhanced)
	if enhanced == "" {
		log.Warn("prompt enhancement returned nothing, keeping original prompt")
		return prompt
	}

	log.Debug("enhanced prompt", "prompt", enhanced)
	return enhanced
}
