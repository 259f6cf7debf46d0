package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"

	"colorizer/internal/colorize"
	"colorizer/internal/credits"
	"colorizer/internal/domain"
	"colorizer/internal/http/handlers"
	"colorizer/internal/middleware"
	"colorizer/internal/providers/image"
	"colorizer/internal/telemetry"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type stubAdapter struct {
	calls atomic.Int32
	out   *image.Output
	err   error
}

func (s *stubAdapter) Profile() image.Profile {
	return image.Profile{Provider: "gemini", DefaultInstruction: "colorize"}
}

func (s *stubAdapter) Generate(context.Context, image.GenerateRequest) (*image.Output, error) {
	s.calls.Add(1)
	return s.out, s.err
}

type harness struct {
	server  *httptest.Server
	adapter *stubAdapter
	store   *credits.MemoryStore
}

func newHarness(t *testing.T, opts Options, seed ...credits.Option) *harness {
	t.Helper()
	adapter := &stubAdapter{out: &image.Output{Kind: image.OutputImage, Data: []byte("colored"), MIMEType: "image/png"}}
	store := credits.NewMemoryStore(1000, seed...)
	svc, err := colorize.NewService(colorize.Options{Adapter: adapter, Store: store})
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	app := handlers.NewApp(svc, store, 10<<20, nil)
	srv := httptest.NewServer(NewRouter(app, opts))
	t.Cleanup(srv.Close)
	return &harness{server: srv, adapter: adapter, store: store}
}

type part struct {
	field, filename, contentType string
	data                         []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
		h.Set("Content-Type", f.contentType)
		w, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = w.Write(f.data)
	}
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func (h *harness) post(t *testing.T, path string, body io.Reader, contentType string, headers ...string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.server.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return h.do(t, req)
}

func (h *harness) get(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, h.server.URL+path, nil)
	return h.do(t, req)
}

func (h *harness) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := h.server.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return resp.StatusCode, body
}

func imagePart() part {
	return part{field: "image", filename: "sketch.png", contentType: "image/png", data: pngBytes}
}

func TestProcessImageSuccess(t *testing.T) {
	h := newHarness(t, Options{})
	body, ct := multipartBody(t, nil, imagePart())

	code, resp := h.post(t, "/api/process-image", body, ct)
	if code != http.StatusOK {
		t.Fatalf("status = %d body=%v", code, resp)
	}
	if resp["success"] != true || resp["creditsUsed"].(float64) != 2 || resp["remainingCredits"].(float64) != 998 {
		t.Fatalf("unexpected body %v", resp)
	}
	result := resp["result"].(map[string]any)
	if result["type"] != "image" || result["mimeType"] != "image/png" {
		t.Fatalf("unexpected result %v", result)
	}
	if result["data"] != base64.StdEncoding.EncodeToString([]byte("colored")) {
		t.Fatalf("image data not base64 encoded: %v", result["data"])
	}
	if !strings.Contains(resp["message"].(string), "gemini") {
		t.Fatalf("message = %v", resp["message"])
	}
}

func TestProcessImageTextResult(t *testing.T) {
	h := newHarness(t, Options{})
	h.adapter.out = &image.Output{Kind: image.OutputText, Text: "only words"}
	body, ct := multipartBody(t, map[string]string{"userId": "ana"}, imagePart())

	code, resp := h.post(t, "/api/process-image", body, ct)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	result := resp["result"].(map[string]any)
	if result["type"] != "text" || result["data"] != "only words" {
		t.Fatalf("unexpected result %v", result)
	}
	if _, ok := result["mimeType"]; ok {
		t.Fatalf("text result must not carry mimeType")
	}
	if n, _ := h.store.Balance(context.Background(), "ana"); n != 998 {
		t.Fatalf("balance = %d", n)
	}
}

func TestProcessImageInsufficientCredits(t *testing.T) {
	h := newHarness(t, Options{}, credits.WithBalance("poor", 1))
	body, ct := multipartBody(t, map[string]string{"userId": "poor"}, imagePart())

	code, resp := h.post(t, "/api/process-image", body, ct, "Accept-Language", "es-ES")
	if code != http.StatusPaymentRequired {
		t.Fatalf("status = %d", code)
	}
	if resp["requiredCredits"].(float64) != 2 || resp["currentCredits"].(float64) != 1 {
		t.Fatalf("unexpected body %v", resp)
	}
	if resp["error"] != "Créditos insuficientes. Necesitas al menos 2 créditos." {
		t.Fatalf("error = %v", resp["error"])
	}
	if resp["errorKind"] != string(domain.KindInsufficientCredits) {
		t.Fatalf("errorKind = %v", resp["errorKind"])
	}
	if h.adapter.calls.Load() != 0 {
		t.Fatalf("provider was called")
	}
}

func TestProcessImageProviderFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.adapter.err = fmt.Errorf("flux: %w: job job-1 finished with status %q", domain.ErrAdapter, "Failed")
	body, ct := multipartBody(t, nil, imagePart())

	code, resp := h.post(t, "/api/process-image", body, ct)
	if code != http.StatusInternalServerError {
		t.Fatalf("status = %d", code)
	}
	if resp["success"] != false || resp["remainingCredits"].(float64) != 1000 {
		t.Fatalf("unexpected body %v", resp)
	}
	if !strings.Contains(resp["error"].(string), "Failed") {
		t.Fatalf("provider message not passed through: %v", resp["error"])
	}
	if resp["message"] != "Failed to process image" {
		t.Fatalf("message = %v", resp["message"])
	}
}

func TestProcessImageUploadErrors(t *testing.T) {
	h := newHarness(t, Options{})

	body, ct := multipartBody(t, map[string]string{"userId": "x"})
	code, resp := h.post(t, "/api/process-image", body, ct)
	if code != http.StatusBadRequest || resp["error"] != "No image was provided" {
		t.Fatalf("missing file: %d %v", code, resp)
	}

	body, ct = multipartBody(t, nil, part{field: "image", filename: "notes.txt", contentType: "text/plain", data: []byte("hello")})
	code, resp = h.post(t, "/api/process-image", body, ct)
	if code != http.StatusBadRequest || resp["error"] != "Only image files are allowed" {
		t.Fatalf("non image: %d %v", code, resp)
	}

	big := bytes.Repeat([]byte{0xff}, 10<<20+512<<10)
	body, ct = multipartBody(t, nil, part{field: "image", filename: "huge.png", contentType: "image/png", data: big})
	code, resp = h.post(t, "/api/process-image", body, ct)
	if code != http.StatusBadRequest || !strings.Contains(resp["error"].(string), "10MB") {
		t.Fatalf("too large: %d %v", code, resp)
	}

	body, ct = multipartBody(t, nil, part{field: "image", filename: "fake.png", contentType: "image/png", data: []byte("plain words")})
	code, resp = h.post(t, "/api/process-image", body, ct)
	if code != http.StatusOK {
		t.Fatalf("declared image type is trusted: %d %v", code, resp)
	}

	if h.adapter.calls.Load() != 1 {
		t.Fatalf("adapter calls = %d", h.adapter.calls.Load())
	}
}

func TestCreditsEndpoints(t *testing.T) {
	h := newHarness(t, Options{TopUpEnabled: true})

	code, resp := h.get(t, "/api/credits/new-user")
	if code != http.StatusOK || resp["credits"].(float64) != 1000 {
		t.Fatalf("get credits: %d %v", code, resp)
	}

	code, resp = h.post(t, "/api/credits/new-user", strings.NewReader(`{"amount":25}`), "application/json")
	if code != http.StatusOK || resp["credits"].(float64) != 1025 {
		t.Fatalf("top up: %d %v", code, resp)
	}

	code, _ = h.post(t, "/api/credits/new-user", strings.NewReader(`{"amount":-3}`), "application/json")
	if code != http.StatusBadRequest {
		t.Fatalf("negative top up status = %d", code)
	}
}

func TestTopUpDisabledByDefault(t *testing.T) {
	h := newHarness(t, Options{})
	code, resp := h.post(t, "/api/credits/default", strings.NewReader(`{"amount":5}`), "application/json")
	if code != http.StatusMethodNotAllowed || resp["success"] != false {
		t.Fatalf("top up must not be mounted: %d %v", code, resp)
	}
}

func TestValidateFile(t *testing.T) {
	h := newHarness(t, Options{})

	body, ct := multipartBody(t, nil, imagePart())
	code, resp := h.post(t, "/api/validate-file", body, ct)
	if code != http.StatusOK || resp["message"] != "Valid file" {
		t.Fatalf("valid png: %d %v", code, resp)
	}
	info := resp["fileInfo"].(map[string]any)
	if info["filename"] != "sketch.png" || info["mimetype"] != "image/png" || info["sizeInMB"] != "0.00" {
		t.Fatalf("fileInfo = %v", info)
	}

	body, ct = multipartBody(t, nil, part{field: "image", filename: "a.gif", contentType: "image/gif", data: []byte("GIF89a")})
	code, resp = h.post(t, "/api/validate-file", body, ct)
	if code != http.StatusBadRequest {
		t.Fatalf("gif status = %d", code)
	}
	checks := resp["validations"].(map[string]any)
	if checks["isImage"] != true || checks["sizeOK"] != true || checks["formatSupported"] != false {
		t.Fatalf("validations = %v", checks)
	}

	body, ct = multipartBody(t, nil)
	code, resp = h.post(t, "/api/validate-file", body, ct, "X-Locale", "es")
	if code != http.StatusBadRequest || resp["error"] != "No se proporcionó ningún archivo" {
		t.Fatalf("missing file: %d %v", code, resp)
	}
	if h.adapter.calls.Load() != 0 {
		t.Fatalf("validation must not call the provider")
	}
}

func TestStatsHealthAndNotFound(t *testing.T) {
	metrics := telemetry.NewMetrics()
	h := newHarness(t, Options{Metrics: metrics.Handler()})

	code, resp := h.get(t, "/api/stats")
	if code != http.StatusOK || resp["success"] != true {
		t.Fatalf("stats: %d %v", code, resp)
	}
	stats := resp["stats"].(map[string]any)
	for _, key := range []string{"uptime", "memory", "goVersion", "platform", "provider", "timestamp"} {
		if _, ok := stats[key]; !ok {
			t.Fatalf("stats missing %s: %v", key, stats)
		}
	}

	code, resp = h.get(t, "/v1/healthz")
	if code != http.StatusOK || resp["status"] != "ok" {
		t.Fatalf("healthz: %d %v", code, resp)
	}

	code, resp = h.get(t, "/nope")
	if code != http.StatusNotFound || resp["error"] != "Route not found" {
		t.Fatalf("not found: %d %v", code, resp)
	}

	res, err := h.server.Client().Get(h.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	defer res.Body.Close()
	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(raw), "go_goroutines") {
		t.Fatalf("metrics status = %d", res.StatusCode)
	}
}

func TestRateLimitedAPI(t *testing.T) {
	h := newHarness(t, Options{RateLimiter: middleware.NewRateLimiter(2)})
	for i := 0; i < 2; i++ {
		if code, _ := h.get(t, "/api/credits/default"); code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, code)
		}
	}
	if code, resp := h.get(t, "/api/credits/default"); code != http.StatusTooManyRequests || resp["success"] != false {
		t.Fatalf("expected 429, got %d %v", code, resp)
	}
	if code, _ := h.get(t, "/v1/healthz"); code != http.StatusOK {
		t.Fatalf("health must not be rate limited, status = %d", code)
	}
}
