package image

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

type Model string

const (
	ModelFlux  Model = "flux"
	ModelTurbo Model = "turbo"
)

var (
	ErrUnknownModel = errors.New("unknown model")

	// ErrInvalidArtifact reports a provider answer that is not image data.
	ErrInvalidArtifact = errors.New("invalid data from API")
)

func ParseModel(s string) (Model, error) {
	switch m := Model(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModelFlux, nil
	case ModelFlux, ModelTurbo:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
	}
}

type Params struct {
	Prompt  string `json:"prompt"`
	Model   Model  `json:"model"`
	Seed    int64  `json:"seed"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Enhance bool   `json:"enhance"`
	NoLogo  bool   `json:"nologo"`
	Private bool   `json:"private"`
	Safe    bool   `json:"safe"`
}

// Artifact is a generated image as returned by the provider, before it is
// staged to disk.
type Artifact struct {
	Data        []byte
	ContentType string
	Seed        int64
}

// Extension picks the file extension for the staged copy.
func (a *Artifact) Extension() string {
	switch a.ContentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

type Fetcher interface {
	Fetch(context.Context, Params) (*Artifact, error)
}

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("image provider status %d: %s", e.Code, e.Body)
}

// Kind names the class of a fetch failure for per-image diagnostics.
func Kind(err error) string {
	var status *StatusError
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.As(err, &status):
		return "StatusError"
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return "Timeout"
		}
		return "NetworkError"
	default:
		return "FetchError"
	}
}
