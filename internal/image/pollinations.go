package image

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmorgan81/imagine/internal/log"
)

type PollinationsFetcher struct {
	Client   *http.Client
	BaseURL  string
	Referrer string
	Token    string
}

func (f *PollinationsFetcher) endpoint(params Params) string {
	q := url.Values{}
	q.Set("model", string(params.Model))
	q.Set("seed", strconv.FormatInt(params.Seed, 10))
	q.Set("width", strconv.Itoa(params.Width))
	q.Set("height", strconv.Itoa(params.Height))
	q.Set("enhance", strconv.FormatBool(params.Enhance))
	q.Set("nologo", strconv.FormatBool(params.NoLogo))
	q.Set("private", strconv.FormatBool(params.Private))
	q.Set("safe", strconv.FormatBool(params.Safe))
	if f.Referrer != "" {
		q.Set("referrer", f.Referrer)
	}
	return strings.TrimRight(f.BaseURL, "/") + "/prompt/" + url.PathEscape(params.Prompt) + "?" + q.Encode()
}

func (f *PollinationsFetcher) Fetch(ctx context.Context, params Params) (*Artifact, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("pollinations").With(
		"model", params.Model,
		"seed", params.Seed,
		"width", params.Width,
		"height", params.Height,
	)
	log.Info("generating image via image.pollinations.ai")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint(params), nil)
	if err != nil {
		return nil, err
	}
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	contentType := http.DetectContentType(data)
	if len(data) > 0 && !strings.HasPrefix(contentType, "image/") {
		log.Warn("provider returned non image data", "content-type", contentType)
		return nil, ErrInvalidArtifact
	}

	log.Info("received image via image.pollinations.ai", "bytes", len(data), "content-type", contentType)
	return &Artifact{Data: data, ContentType: contentType, Seed: params.Seed}, nil
}
