package batch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmorgan81/imagine/internal/image"
	"github.com/dmorgan81/imagine/internal/prompt"
	"github.com/samber/lo"
)

const (
	MinDimension  = 256
	MaxDimension  = 2048
	dimensionStep = 64
)

var (
	ErrEmptyPrompt      = errors.New("prompt cannot be empty")
	ErrInvalidCount     = errors.New("count must be at least 1")
	ErrInvalidDimension = fmt.Errorf("dimension must be between %d and %d", MinDimension, MaxDimension)
)

type Request struct {
	Prompt           string       `json:"prompt"`
	Style            prompt.Style `json:"style"`
	Model            image.Model  `json:"model"`
	Seed             int64        `json:"seed"`
	Width            int          `json:"width"`
	Height           int          `json:"height"`
	EnhanceImage     bool         `json:"enhance_image"`
	NoLogo           bool         `json:"nologo"`
	Private          bool         `json:"private"`
	Safe             bool         `json:"safe"`
	UseAIEnhancement bool         `json:"use_ai_enhancement"`
	Count            int          `json:"count"`
}

type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned when every attempt of a batch failed.
type ExhaustedError struct {
	Failures []string
}

func (e *ExhaustedError) Error() string {
	return strings.Join(e.Failures, "\n")
}

func snap(n int) int {
	n = (n + dimensionStep/2) / dimensionStep * dimensionStep
	return lo.Clamp(n, MinDimension, MaxDimension)
}

func dimension(field string, v int) (int, error) {
	if v < MinDimension || v > MaxDimension {
		return v, &ValidationError{Field: field, Err: fmt.Errorf("%w: got %d", ErrInvalidDimension, v)}
	}
	return snap(v), nil
}

// normalize checks r and returns a copy with model and style resolved and
// dimensions snapped to the provider grid.
func (r Request) normalize() (Request, error) {
	if strings.TrimSpace(r.Prompt) == "" {
		return r, &ValidationError{Field: "prompt", Err: ErrEmptyPrompt}
	}
	if r.Count < 1 {
		return r, &ValidationError{Field: "count", Err: ErrInvalidCount}
	}

	model, err := image.ParseModel(string(r.Model))
	if err != nil {
		return r, &ValidationError{Field: "model", Err: err}
	}
	r.Model = model

	style, err := prompt.ParseStyle(string(r.Style))
	if err != nil {
		return r, &ValidationError{Field: "style", Err: err}
	}
	r.Style = style

	if r.Width, err = dimension("width", r.Width); err != nil {
		return r, err
	}
	if r.Height, err = dimension("height", r.Height); err != nil {
		return r, err
	}
	return r, nil
}
