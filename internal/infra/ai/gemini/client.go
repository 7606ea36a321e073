package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/disputehq/creditlens/internal/domain/analysis"
	"github.com/disputehq/creditlens/internal/infra/ai/prompt"
)

const maxOutputTokens = 8192

// Client calls the Gemini generateContent REST API. One non-streamed call
// per analysis request; retries are the caller's decision (there are none).
type Client struct {
	APIKey   string
	Model    string
	Endpoint string
	HTTP     *http.Client
}

func NewClient(apiKey, model, endpoint string) *Client {
	return &Client{
		APIKey:   apiKey,
		Model:    model,
		Endpoint: strings.TrimSuffix(endpoint, "/"),
		HTTP:     &http.Client{Timeout: 120 * time.Second},
	}
}

type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inline_data,omitempty"`
}

type wireInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

func (c *Client) Analyze(ctx context.Context, files []analysis.BureauFile) (string, error) {
	parts := prompt.BuildParts(files)
	wire := make([]wirePart, 0, len(parts))
	for _, p := range parts {
		wp := wirePart{Text: p.Text}
		if p.InlineData != nil {
			wp.InlineData = &wireInlineData{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}
		}
		wire = append(wire, wp)
	}

	payload, err := json.Marshal(map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": wire},
		},
		"generationConfig": map[string]any{
			"response_mime_type": "application/json",
			"maxOutputTokens":    maxOutputTokens,
			"temperature":        0.1,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.Endpoint, c.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &analysis.UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return "", analysis.ErrEmptyModelResponse
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", analysis.ErrEmptyModelResponse
	}
	return text, nil
}
