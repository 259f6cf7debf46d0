package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"colorizer/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	client, err := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL, Model: "gemini-test"})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return client
}

func TestGenerateContentSendsInstructionAndInlineImage(t *testing.T) {
	var captured geminiGenerateContentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-test:generateContent" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Fatalf("unexpected api key header: %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"done"}]}}]}`))
	})

	_, err := client.GenerateContent(context.Background(), ContentRequest{
		Instruction: "colorize",
		Image:       []byte{0xff, 0xd8, 0xff},
		MIMEType:    "image/jpeg",
		Config:      GenerationConfig{Temperature: 0.8, TopK: 40, TopP: 0.95, MaxOutputTokens: 4096},
	})
	if err != nil {
		t.Fatalf("GenerateContent error: %v", err)
	}
	if len(captured.Contents) != 1 || len(captured.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected contents: %+v", captured.Contents)
	}
	parts := captured.Contents[0].Parts
	if parts[0].Text != "colorize" {
		t.Fatalf("first part must be the instruction, got %+v", parts[0])
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MimeType != "image/jpeg" {
		t.Fatalf("second part must be inline image, got %+v", parts[1])
	}
	if parts[1].InlineData.Data != base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff}) {
		t.Fatalf("inline data not base64 encoded: %q", parts[1].InlineData.Data)
	}
	if captured.GenerationConfig == nil || captured.GenerationConfig.TopK != 40 || captured.GenerationConfig.MaxOutputTokens != 4096 {
		t.Fatalf("generation config not forwarded: %+v", captured.GenerationConfig)
	}
}

func TestGenerateContentDecodesInlineData(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4e, 0x47}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{
					map[string]any{"text": "here you go"},
					map[string]any{"inlineData": map[string]any{"mimeType": "image/png", "data": base64.StdEncoding.EncodeToString(png)}},
				}},
			}},
		})
	})

	resp, err := client.GenerateContent(context.Background(), ContentRequest{Instruction: "x", Image: []byte{1}})
	if err != nil {
		t.Fatalf("GenerateContent error: %v", err)
	}
	inline := resp.FirstInline()
	if inline == nil {
		t.Fatalf("expected inline data")
	}
	if inline.MIMEType != "image/png" || string(inline.Data) != string(png) {
		t.Fatalf("unexpected inline data: %+v", inline)
	}
	if resp.Text() != "here you go" {
		t.Fatalf("Text() = %q", resp.Text())
	}
}

func TestGenerateContentErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "api error message", status: http.StatusBadRequest, body: `{"error":{"code":400,"message":"Image too large"}}`, wantErr: domain.ErrAdapter, wantMsg: "Image too large"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":{"code":429,"message":"quota"}}`, wantErr: domain.ErrRateLimited, wantMsg: "quota"},
		{name: "plain body", status: http.StatusInternalServerError, body: "boom", wantErr: domain.ErrAdapter, wantMsg: "boom"},
		{name: "empty candidates", status: http.StatusOK, body: `{"candidates":[]}`, wantErr: domain.ErrAdapter, wantMsg: "empty response"},
		{name: "blocked prompt", status: http.StatusOK, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`, wantErr: domain.ErrAdapter, wantMsg: "SAFETY"},
		{name: "malformed json", status: http.StatusOK, body: `{"candidates":`, wantErr: domain.ErrAdapter, wantMsg: "decode response"},
		{name: "bad inline data", status: http.StatusOK, body: `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"%%%"}}]}}]}`, wantErr: domain.ErrAdapter, wantMsg: "decode inline data"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := client.GenerateContent(context.Background(), ContentRequest{Instruction: "x", Image: []byte{1}})
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error %v does not wrap %v", err, tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("error %q does not contain %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestGenerateContentMissingKey(t *testing.T) {
	client, _ := NewClient(Options{})
	_, err := client.GenerateContent(context.Background(), ContentRequest{Instruction: "x", Image: []byte{1}})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Options{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client.Model() != "gemini-2.5-flash-image-preview" {
		t.Fatalf("Model() = %q", client.Model())
	}
	if client.baseURL != "https://generativelanguage.googleapis.com/v1beta" {
		t.Fatalf("baseURL = %q", client.baseURL)
	}
}
