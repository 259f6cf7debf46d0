package colorize

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"colorizer/internal/credits"
	"colorizer/internal/domain"
	"colorizer/internal/infra"
	"colorizer/internal/providers/image"
	"colorizer/internal/telemetry"
)

// DefaultCost is the number of credits charged for one successful generation.
const DefaultCost = 2

// Request is one colorization attempt. Image takes precedence over
// ImageBase64 when both are set.
type Request struct {
	UserID             string
	Image              []byte
	ImageBase64        string
	MIMEType           string
	CustomInstructions string
}

// Options wires the orchestrator dependencies.
type Options struct {
	Adapter image.Adapter
	Store   credits.Store
	Cost    int
	Metrics *telemetry.Metrics
	Logger  *infra.Logger
	NewID   func() string
}

// Service gates, delegates and bills colorization requests.
type Service struct {
	adapter image.Adapter
	store   credits.Store
	cost    int
	metrics *telemetry.Metrics
	logger  *infra.Logger
	newID   func() string
}

// NewService validates opts and applies defaults.
func NewService(opts Options) (*Service, error) {
	if opts.Adapter == nil {
		return nil, errors.New("colorize: adapter is required")
	}
	if opts.Store == nil {
		return nil, errors.New("colorize: credit store is required")
	}
	cost := opts.Cost
	if cost <= 0 {
		cost = DefaultCost
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Service{
		adapter: opts.Adapter,
		store:   opts.Store,
		cost:    cost,
		metrics: opts.Metrics,
		logger:  logger,
		newID:   newID,
	}, nil
}

// Cost returns the per-image charge.
func (s *Service) Cost() int {
	return s.cost
}

// Provider returns the name of the active adapter.
func (s *Service) Provider() string {
	return s.adapter.Profile().Provider
}

// Process runs one attempt end to end. Errors never escape; they are folded
// into a failure result carrying the caller's balance. The ledger is mutated
// at most once and only after the provider succeeded.
func (s *Service) Process(ctx context.Context, req Request) domain.ProcessingResult {
	start := time.Now()
	jobID := s.newID()
	profile := s.adapter.Profile()
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = credits.DefaultUserID
	}
	log := s.logger.With().
		Str("job_id", jobID).
		Str("user_id", userID).
		Str("provider", profile.Provider).
		Logger()

	result := s.process(ctx, jobID, userID, profile, req, &log)

	outcome := string(result.Kind)
	if !result.Succeeded() {
		outcome = string(result.ErrorKind)
	}
	s.metrics.RecordProcess(profile.Provider, outcome, time.Since(start).Seconds())

	event := log.Info()
	if !result.Succeeded() {
		event = log.Warn().Str("error_kind", string(result.ErrorKind)).Str("error", result.ErrorMessage)
	}
	event.
		Str("result", string(result.Kind)).
		Int("credits_used", result.CreditsUsed).
		Int("remaining", result.RemainingCredits).
		Dur("duration", time.Since(start)).
		Msg("colorize request finished")

	return result
}

func (s *Service) process(ctx context.Context, jobID, userID string, profile image.Profile, req Request, log *infra.Logger) domain.ProcessingResult {
	ok, err := s.store.HasSufficientCredits(ctx, userID, s.cost)
	if err != nil {
		return domain.Failure(fmt.Errorf("colorize: %w: credit check: %v", domain.ErrAdapter, err), s.balance(ctx, userID))
	}
	if !ok {
		balance := s.balance(ctx, userID)
		return domain.Failure(fmt.Errorf("colorize: %w: need %d, have %d", domain.ErrInsufficientCredits, s.cost, balance), balance)
	}

	src, err := decodeSource(req)
	if err != nil {
		return domain.Failure(err, s.balance(ctx, userID))
	}

	custom := strings.TrimSpace(req.CustomInstructions) != ""
	instruction := profile.DefaultInstruction
	if custom {
		instruction = req.CustomInstructions
	}

	log.Debug().
		Bool("custom", custom).
		Str("mime", src.MIMEType).
		Int("bytes", len(src.Data)).
		Msg("calling provider")

	out, err := s.adapter.Generate(ctx, image.GenerateRequest{
		JobID:       jobID,
		Image:       src,
		Instruction: instruction,
		Params:      profile.ForCustom(custom),
	})
	if err != nil {
		return domain.Failure(err, s.balance(ctx, userID))
	}
	if out == nil {
		return domain.Failure(fmt.Errorf("colorize: %w: adapter returned no output", domain.ErrAdapter), s.balance(ctx, userID))
	}

	// Debit with a context detached from the caller so a client abort after
	// the provider already answered cannot skip billing.
	remaining, debited, err := s.store.Debit(context.WithoutCancel(ctx), userID, s.cost)
	if err != nil || !debited {
		cause := "insufficient balance at debit time"
		if err != nil {
			cause = err.Error()
		}
		log.Error().Str("cause", cause).Msg("debit failed after successful generation")
		return domain.Failure(fmt.Errorf("colorize: %w: %s", domain.ErrCreditDeductionFailed, cause), s.balance(ctx, userID))
	}
	s.metrics.RecordDebit(profile.Provider, s.cost)

	res := domain.ProcessingResult{CreditsUsed: s.cost, RemainingCredits: remaining}
	switch out.Kind {
	case image.OutputText:
		res.Kind = domain.ResultText
		res.Content = out.Text
	default:
		res.Kind = domain.ResultImage
		res.Data = out.Data
		res.MIMEType = out.MIMEType
	}
	return res
}

// balance is best effort; a failing store reports zero.
func (s *Service) balance(ctx context.Context, userID string) int {
	n, err := s.store.Balance(context.WithoutCancel(ctx), userID)
	if err != nil {
		return 0
	}
	return n
}

func decodeSource(req Request) (image.SourceImage, error) {
	data := req.Image
	declared := req.MIMEType
	if len(data) == 0 && strings.TrimSpace(req.ImageBase64) != "" {
		payload := strings.TrimSpace(req.ImageBase64)
		if strings.HasPrefix(payload, "data:") {
			comma := strings.IndexByte(payload, ',')
			if comma < 0 {
				return image.SourceImage{}, fmt.Errorf("colorize: %w: malformed data uri", domain.ErrInvalidInput)
			}
			if declared == "" {
				declared = strings.TrimSuffix(payload[len("data:"):comma], ";base64")
			}
			payload = payload[comma+1:]
		}
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return image.SourceImage{}, fmt.Errorf("colorize: %w: image is not valid base64", domain.ErrInvalidInput)
		}
		data = decoded
	}
	if len(data) == 0 {
		return image.SourceImage{}, fmt.Errorf("colorize: %w: image is empty", domain.ErrInvalidInput)
	}
	mime := image.DetectMIME(declared, data)
	if !strings.HasPrefix(mime, "image/") {
		return image.SourceImage{}, fmt.Errorf("colorize: %w: unsupported content type %q", domain.ErrInvalidInput, mime)
	}
	return image.SourceImage{Data: data, MIMEType: mime}, nil
}
