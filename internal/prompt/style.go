package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Style string

const (
	StyleNone      Style = "None"
	StyleGhibli    Style = "Ghibli"
	StyleCyberpunk Style = "Cyberpunk"
	StyleRealistic Style = "Realistic"
	StyleAnime     Style = "Anime"
)

var ErrUnknownStyle = errors.New("unknown style")

var suffixes = map[Style]string{
	StyleGhibli:    "Studio Ghibli style, hand-drawn animation, soft colors, whimsical",
	StyleCyberpunk: "cyberpunk style, neon colors, high-tech, dystopian, futuristic",
	StyleRealistic: "photorealistic, detailed, 8k, professional photography",
	StyleAnime:     "anime style, vibrant colors, detailed line art, Japanese animation",
}

// Styles lists every selectable style in display order.
func Styles() []Style {
	return []Style{StyleNone, StyleGhibli, StyleCyberpunk, StyleRealistic, StyleAnime}
}

// ParseStyle accepts any casing of a style name. An empty string is None.
func ParseStyle(s string) (Style, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return StyleNone, nil
	}
	style := Style(cases.Title(language.Und).String(strings.ToLower(s)))
	if !lo.Contains(Styles(), style) {
		return "", fmt.Errorf("%w: %q", ErrUnknownStyle, s)
	}
	return style, nil
}

// Suffix is the descriptive text appended for the style; None has none.
func Suffix(style Style) string {
	return suffixes[style]
}

// Compose builds the prompt sent for one image. An enhanced prompt already
// carries the style, so the suffix is only added when enhancement was not used.
func Compose(base string, style Style, enhancementUsed bool, enhanced string) string {
	if enhancementUsed && enhanced != "" {
		return enhanced
	}
	if suffix := Suffix(style); style != StyleNone && suffix != "" {
		return base + ", " + suffix
	}
	return base
}
