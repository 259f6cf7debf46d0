package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"colorizer/internal/colorize"
	"colorizer/internal/credits"
	"colorizer/internal/domain"
	"colorizer/internal/infra"
)

// Processor runs one colorization attempt.
type Processor interface {
	Process(ctx context.Context, req colorize.Request) domain.ProcessingResult
	Cost() int
	Provider() string
}

// App carries handler dependencies.
type App struct {
	Processor      Processor
	Credits        credits.Store
	Logger         *infra.Logger
	MaxUploadBytes int64
	Started        time.Time
}

// NewApp wires the handlers and applies defaults.
func NewApp(processor Processor, store credits.Store, maxUploadBytes int64, logger *infra.Logger) *App {
	if logger == nil {
		logger = infra.NopLogger()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &App{
		Processor:      processor,
		Credits:        store,
		Logger:         logger,
		MaxUploadBytes: maxUploadBytes,
		Started:        time.Now(),
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes the common failure envelope. Extra fields are merged in.
func (a *App) error(w http.ResponseWriter, code int, message string, extra map[string]any) {
	body := map[string]any{
		"success": false,
		"error":   message,
	}
	for k, v := range extra {
		body[k] = v
	}
	a.json(w, code, body)
}
