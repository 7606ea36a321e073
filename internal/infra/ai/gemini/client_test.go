package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disputehq/creditlens/internal/domain/analysis"
)

func testFiles() []analysis.BureauFile {
	return []analysis.BureauFile{
		{Bureau: analysis.BureauExperian, MIMEType: "application/pdf", Data: "JVBERi0="},
	}
}

func TestAnalyzeSendsMultimodalRequest(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"summary\":"},{"text":" \"ok\"}"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", "gemini-2.0-flash", srv.URL)
	text, err := c.Analyze(context.Background(), testFiles())
	require.NoError(t, err)
	assert.Equal(t, `{"summary": "ok"}`, text, "candidate parts are concatenated")

	contents := captured["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 4)
	inline := parts[2].(map[string]any)["inline_data"].(map[string]any)
	assert.Equal(t, "application/pdf", inline["mime_type"])
	assert.Equal(t, "JVBERi0=", inline["data"])

	gen := captured["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", gen["response_mime_type"])
}

func TestAnalyzeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", "gemini-2.0-flash", srv.URL)
	_, err := c.Analyze(context.Background(), testFiles())

	var ue *analysis.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
	assert.Contains(t, ue.Body, "RESOURCE_EXHAUSTED")
}

func TestAnalyzeEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", "gemini-2.0-flash", srv.URL)
	_, err := c.Analyze(context.Background(), testFiles())

	assert.ErrorIs(t, err, analysis.ErrEmptyModelResponse)
}

func TestAnalyzeBlankText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", "gemini-2.0-flash", srv.URL)
	_, err := c.Analyze(context.Background(), testFiles())

	assert.ErrorIs(t, err, analysis.ErrEmptyModelResponse)
}
