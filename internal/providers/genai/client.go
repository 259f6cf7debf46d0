package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"colorizer/internal/domain"
	"colorizer/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("gemini: api key is required")

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *infra.Logger
}

// Client performs generateContent calls against the Gemini REST API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// GenerationConfig mirrors the generationConfig object of the API. Zero
// values are omitted so the model defaults apply.
type GenerationConfig struct {
	Temperature        float64  `json:"temperature,omitempty"`
	TopK               int      `json:"topK,omitempty"`
	TopP               float64  `json:"topP,omitempty"`
	MaxOutputTokens    int      `json:"maxOutputTokens,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

// ContentRequest is one instruction plus one inline image.
type ContentRequest struct {
	Instruction string
	Image       []byte
	MIMEType    string
	Config      GenerationConfig
	RequestID   string
}

// InlineData is decoded binary content returned by the model.
type InlineData struct {
	MIMEType string
	Data     []byte
}

// Part is one fragment of the first candidate's content.
type Part struct {
	Text       string
	InlineData *InlineData
}

// ContentResponse exposes the parts of the first candidate.
type ContentResponse struct {
	Parts        []Part
	FinishReason string
}

// Text concatenates every text part, matching the SDK convenience accessor.
func (r *ContentResponse) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// FirstInline returns the first part carrying inline data, if any.
func (r *ContentResponse) FirstInline() *InlineData {
	if r == nil {
		return nil
	}
	for _, p := range r.Parts {
		if p.InlineData != nil {
			return p.InlineData
		}
	}
	return nil
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; one with the configured timeout will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash-image-preview"
	}

	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// GenerateContent sends the instruction and the inline image in a single
// request and returns the first candidate.
func (c *Client) GenerateContent(ctx context.Context, req ContentRequest) (*ContentResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrAdapter, ErrMissingAPIKey)
	}
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("gemini: %w: image is required", domain.ErrInvalidInput)
	}
	mime := req.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	cfg := req.Config
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: req.Instruction},
				{InlineData: &geminiInlineData{MimeType: mime, Data: base64.StdEncoding.EncodeToString(req.Image)}},
			},
		}},
		GenerationConfig: &cfg,
	}

	var response geminiGenerateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model))
	if err := c.invokeGemini(ctx, path, payload, &response); err != nil {
		return nil, err
	}

	if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("gemini: %w: prompt blocked (%s)", domain.ErrAdapter, response.PromptFeedback.BlockReason)
	}
	if len(response.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: %w: empty response", domain.ErrAdapter)
	}

	candidate := response.Candidates[0]
	out := &ContentResponse{FinishReason: candidate.FinishReason}
	for _, part := range candidate.Content.Parts {
		p := Part{Text: part.Text}
		if part.InlineData != nil && part.InlineData.Data != "" {
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("gemini: %w: decode inline data: %v", domain.ErrAdapter, err)
			}
			p.InlineData = &InlineData{MIMEType: part.InlineData.MimeType, Data: data}
		}
		out.Parts = append(out.Parts, p)
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.model).
		Int("parts", len(out.Parts)).
		Str("finish_reason", out.FinishReason).
		Msg("gemini: generateContent completed")

	return out, nil
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("gemini: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		switch ctxErr := ctx.Err(); {
		case errors.Is(ctxErr, context.DeadlineExceeded):
			return fmt.Errorf("gemini: %w: %w", domain.ErrTimeout, ctxErr)
		case ctxErr != nil:
			return fmt.Errorf("gemini: request aborted: %w", ctxErr)
		}
		return fmt.Errorf("gemini: %w: invoke: %v", domain.ErrAdapter, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		kind := domain.ErrAdapter
		if resp.StatusCode == http.StatusTooManyRequests {
			kind = domain.ErrRateLimited
		}
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini: %w: status %d: %s", kind, resp.StatusCode, apiErr.Error.Message)
		}
		if msg := strings.TrimSpace(string(data)); msg != "" {
			return fmt.Errorf("gemini: %w: status %d: %s", kind, resp.StatusCode, msg)
		}
		return fmt.Errorf("gemini: %w: status %d", kind, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gemini: %w: decode response: %v", domain.ErrAdapter, err)
	}
	return nil
}
