package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmorgan81/imagine/internal/log"
)

// PollinationsEnhancer talks to the OpenAI compatible chat endpoint of
// text.pollinations.ai.
type PollinationsEnhancer struct {
	Client   *http.Client
	BaseURL  string
	Model    string
	Referrer string
	Token    string
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Referrer string        `json:"referrer,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

var errMissingContent = errors.New("response has no message content")

func (e *PollinationsEnhancer) Enhance(ctx context.Context, prompt string, style Style) (string, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("pollinations").With("model", e.Model)
	log.Info("requesting prompt enhancement via text.pollinations.ai")

	body, err := json.Marshal(chatRequest{
		Model:    e.Model,
		Referrer: e.Referrer,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: userInstruction(prompt, style)},
		},
	})
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(e.BaseURL, "/") + "/openai"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.Token != "" {
		req.Header.Set("Authorization", "Bearer "+e.Token)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("text.pollinations.ai status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode enhancement response: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message == nil || out.Choices[0].Message.Content == nil {
		return "", errMissingContent
	}

	log.Info("received prompt enhancement")
	return strings.TrimSpace(*out.Choices[0].Message.Content), nil
}
