package flux

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
var ErrMissingAPIKey = errors.New("flux: api key is required")

// Status is the job state reported by the polling endpoint.
type Status string

const (
	StatusPending          Status = "Pending"
	StatusReady            Status = "Ready"
	StatusFailed           Status = "Failed"
	StatusError            Status = "Error"
	StatusRequestModerated Status = "Request Moderated"
	StatusContentModerated Status = "Content Moderated"
	StatusTaskNotFound     Status = "Task not found"
	StatusUnknown          Status = "Unknown"
)

// terminalFailure reports statuses after which the job will never be Ready.
func (s Status) terminalFailure() bool {
	switch s {
	case StatusFailed, StatusError, StatusRequestModerated, StatusContentModerated, StatusTaskNotFound:
		return true
	}
	return false
}

// Options configures the Black Forest Labs client.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	AspectRatio  string
	PollInterval time.Duration
	MaxAttempts  int
	HTTPClient   *http.Client
	Timeout      time.Duration
	Logger       *infra.Logger
}

// Client submits generation jobs and polls them to completion.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	aspectRatio  string
	pollInterval time.Duration
	maxAttempts  int
	httpClient   *http.Client
	logger       *infra.Logger
}

// ImageRequest captures the inputs of one image-to-image job.
type ImageRequest struct {
	Prompt      string
	Image       []byte
	AspectRatio string
	RequestID   string
}

// ImageAsset is the decoded result of a Ready job.
type ImageAsset struct {
	URL      string
	Data     []byte
	MIMEType string
}

// PollJob is the client-side state of one submitted job.
type PollJob struct {
	ID       string
	PollURL  string
	Attempts int
	Status   Status
}

type submitRequest struct {
	Prompt      string `json:"prompt"`
	Image       string `json:"image"`
	AspectRatio string `json:"aspect_ratio"`
}

type submitResponse struct {
	ID         string `json:"id"`
	PollingURL string `json:"polling_url"`
}

type pollResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result *struct {
		Sample string `json:"sample"`
	} `json:"result,omitempty"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.bfl.ai/v1"
	}
	model := strings.Trim(strings.TrimSpace(opts.Model), "/")
	if model == "" {
		model = "flux-kontext-pro"
	}
	aspect := strings.TrimSpace(opts.AspectRatio)
	if aspect == "" {
		aspect = "1:1"
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 120
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		model:        model,
		aspectRatio:  aspect,
		pollInterval: interval,
		maxAttempts:  attempts,
		httpClient:   httpClient,
		logger:       logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// GenerateImage submits the job and polls until it settles. The returned job
// is non-nil once the submission was acknowledged, even when polling fails.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, *PollJob, error) {
	job, err := c.Submit(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	asset, err := c.Await(ctx, job)
	return asset, job, err
}

// Submit posts the prompt and the base64 image to the model endpoint.
func (c *Client) Submit(ctx context.Context, req ImageRequest) (*PollJob, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrAdapter, ErrMissingAPIKey)
	}
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("flux: %w: image is required", domain.ErrInvalidInput)
	}
	aspect := strings.TrimSpace(req.AspectRatio)
	if aspect == "" {
		aspect = c.aspectRatio
	}
	body, err := json.Marshal(submitRequest{
		Prompt:      req.Prompt,
		Image:       base64.StdEncoding.EncodeToString(req.Image),
		AspectRatio: aspect,
	})
	if err != nil {
		return nil, fmt.Errorf("flux: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+c.model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("flux: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-key", c.apiKey)

	raw, err := c.do(httpReq, "submit")
	if err != nil {
		return nil, err
	}
	var ack submitResponse
	if err := json.Unmarshal(raw, &ack); err != nil {
		return nil, fmt.Errorf("flux: %w: decode submit response: %v", domain.ErrAdapter, err)
	}
	ack.ID = strings.TrimSpace(ack.ID)
	ack.PollingURL = strings.TrimSpace(ack.PollingURL)
	if ack.ID == "" || ack.PollingURL == "" {
		return nil, fmt.Errorf("flux: %w: malformed submission acknowledgment (id=%q, polling_url=%q)", domain.ErrAdapter, ack.ID, ack.PollingURL)
	}
	pollURL, err := c.resolve(ack.PollingURL)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("job_id", ack.ID).
		Str("model", c.model).
		Msg("flux: job submitted")

	return &PollJob{ID: ack.ID, PollURL: pollURL, Status: StatusPending}, nil
}

// Await polls job at a fixed interval until it reaches a terminal status, the
// attempt ceiling is hit, or ctx is done. The wait between polls only blocks
// the calling goroutine.
func (c *Client) Await(ctx context.Context, job *PollJob) (*ImageAsset, error) {
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for job.Attempts < c.maxAttempts {
		select {
		case <-ctx.Done():
			return nil, abortError(fmt.Sprintf("poll %d", job.Attempts), ctx.Err())
		case <-timer.C:
		}

		job.Attempts++
		res, err := c.poll(ctx, job)
		if err != nil {
			job.Status = StatusError
			return nil, err
		}
		job.Status = Status(strings.TrimSpace(res.Status))
		if job.Status == "" {
			job.Status = StatusUnknown
		}

		switch {
		case job.Status == StatusReady:
			if res.Result == nil || strings.TrimSpace(res.Result.Sample) == "" {
				return nil, fmt.Errorf("flux: %w: ready job %s has no sample", domain.ErrAdapter, job.ID)
			}
			c.logger.Debug().
				Str("job_id", job.ID).
				Int("attempts", job.Attempts).
				Msg("flux: job ready")
			return c.fetchSample(ctx, strings.TrimSpace(res.Result.Sample))
		case job.Status.terminalFailure():
			return nil, fmt.Errorf("flux: %w: job %s finished with status %q", domain.ErrAdapter, job.ID, job.Status)
		}

		timer.Reset(c.pollInterval)
	}

	return nil, fmt.Errorf("flux: %w: job %s not ready after %d polls", domain.ErrTimeout, job.ID, job.Attempts)
}

func (c *Client) poll(ctx context.Context, job *PollJob) (*pollResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.PollURL, nil)
	if err != nil {
		return nil, fmt.Errorf("flux: build poll request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-key", c.apiKey)

	raw, err := c.do(req, "poll")
	if err != nil {
		return nil, err
	}
	var res pollResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("flux: %w: decode poll response: %v", domain.ErrAdapter, err)
	}
	return &res, nil
}

// do executes req and maps HTTP failures onto the domain error taxonomy.
func (c *Client) do(req *http.Request, stage string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, abortError(stage, ctxErr)
		}
		return nil, fmt.Errorf("flux: %w: %s request: %v", domain.ErrAdapter, stage, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("flux: %w: read %s response: %v", domain.ErrAdapter, stage, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("flux: %w: %s returned status 429", domain.ErrRateLimited, stage)
	case resp.StatusCode == http.StatusPaymentRequired:
		return nil, fmt.Errorf("flux: %w: %s returned status 402", domain.ErrOutOfProviderCredits, stage)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return nil, fmt.Errorf("flux: %w: %s status %d: %s", domain.ErrAdapter, stage, resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("flux: %w: %s status %d", domain.ErrAdapter, stage, resp.StatusCode)
	}
	return raw, nil
}

// fetchSample turns result.sample into bytes. BFL returns a short-lived
// signed URL; data URIs and bare base64 are accepted as well.
func (c *Client) fetchSample(ctx context.Context, sample string) (*ImageAsset, error) {
	lower := strings.ToLower(sample)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		data, mime, err := c.download(ctx, sample)
		if err != nil {
			return nil, err
		}
		return &ImageAsset{URL: sample, Data: data, MIMEType: mime}, nil
	case strings.HasPrefix(lower, "data:"):
		data, mime, err := decodeDataURI(sample)
		if err != nil {
			return nil, err
		}
		return &ImageAsset{Data: data, MIMEType: mime}, nil
	default:
		data, err := base64.StdEncoding.DecodeString(sample)
		if err != nil {
			return nil, fmt.Errorf("flux: %w: sample is neither url nor base64: %v", domain.ErrAdapter, err)
		}
		return &ImageAsset{Data: data, MIMEType: sniff(data)}, nil
	}
}

func (c *Client) download(ctx context.Context, sampleURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sampleURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("flux: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("flux: %w: download sample: %v", domain.ErrAdapter, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("flux: %w: download status %d", domain.ErrAdapter, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("flux: %w: read sample: %v", domain.ErrAdapter, err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("flux: %w: empty sample", domain.ErrAdapter)
	}
	mime := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		mime = sniff(data)
	}
	return data, mime, nil
}

func (c *Client) resolve(pollingURL string) (string, error) {
	parsed, err := url.Parse(pollingURL)
	if err != nil {
		return "", fmt.Errorf("flux: %w: invalid polling url %q", domain.ErrAdapter, pollingURL)
	}
	if parsed.IsAbs() {
		return parsed.String(), nil
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("flux: invalid base url: %w", err)
	}
	return base.ResolveReference(parsed).String(), nil
}

// abortError keeps the context cause visible. An expired deadline counts as
// a generation timeout.
func abortError(stage string, cause error) error {
	if errors.Is(cause, context.DeadlineExceeded) {
		return fmt.Errorf("flux: %w: %s: %w", domain.ErrTimeout, stage, cause)
	}
	return fmt.Errorf("flux: %s aborted: %w", stage, cause)
}

func decodeDataURI(uri string) ([]byte, string, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, "", fmt.Errorf("flux: %w: malformed data uri", domain.ErrAdapter)
	}
	meta := uri[len("data:"):comma]
	mime := strings.TrimSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, "", fmt.Errorf("flux: %w: decode data uri: %v", domain.ErrAdapter, err)
	}
	if mime == "" {
		mime = sniff(data)
	}
	return data, mime, nil
}

func sniff(data []byte) string {
	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return mime
}
