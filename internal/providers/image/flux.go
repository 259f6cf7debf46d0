package image

import (
	"context"
	"fmt"

	"colorizer/internal/domain"
	"colorizer/internal/infra"
	"colorizer/internal/providers/flux"
)

// JobRunner is the subset of the flux client used by the adapter.
type JobRunner interface {
	GenerateImage(ctx context.Context, req flux.ImageRequest) (*flux.ImageAsset, *flux.PollJob, error)
}

// PollObserver receives the final status and poll count of every settled job.
type PollObserver func(status string, attempts int)

// FluxAdapter runs the submit-then-poll flow of Black Forest Labs models.
type FluxAdapter struct {
	client   JobRunner
	profile  Profile
	observer PollObserver
	logger   *infra.Logger
}

// NewFluxAdapter wires the adapter around an existing flux client.
func NewFluxAdapter(client JobRunner, profile Profile, observer PollObserver, logger *infra.Logger) *FluxAdapter {
	if logger == nil {
		logger = infra.NopLogger()
	}
	if profile.Provider == "" {
		profile.Provider = infra.ProviderFlux
	}
	if profile.DefaultInstruction == "" {
		profile.DefaultInstruction = DefaultFluxInstruction
	}
	return &FluxAdapter{client: client, profile: profile, observer: observer, logger: logger}
}

// FluxProfile only carries the aspect ratio; sampling knobs are not exposed
// by the Kontext endpoints.
func FluxProfile(cfg *infra.Config) Profile {
	params := Params{AspectRatio: cfg.FluxAspectRatio}
	return Profile{
		Provider:           infra.ProviderFlux,
		DefaultInstruction: DefaultFluxInstruction,
		Params:             params,
		CustomParams:       params,
	}
}

func (f *FluxAdapter) Profile() Profile {
	return f.profile
}

func (f *FluxAdapter) Generate(ctx context.Context, req GenerateRequest) (*Output, error) {
	asset, job, err := f.client.GenerateImage(ctx, flux.ImageRequest{
		Prompt:      req.Instruction,
		Image:       req.Image.Data,
		AspectRatio: req.Params.AspectRatio,
		RequestID:   req.JobID,
	})
	if job != nil {
		if f.observer != nil {
			f.observer(string(job.Status), job.Attempts)
		}
		f.logger.Debug().
			Str("job_id", req.JobID).
			Str("flux_job", job.ID).
			Str("status", string(job.Status)).
			Int("attempts", job.Attempts).
			Msg("flux: job settled")
	}
	if err != nil {
		return nil, err
	}
	if asset == nil || len(asset.Data) == 0 {
		return nil, fmt.Errorf("flux: %w: empty result", domain.ErrAdapter)
	}
	mime := asset.MIMEType
	if mime == "" {
		mime = DetectMIME("", asset.Data)
	}
	return &Output{Kind: OutputImage, Data: asset.Data, MIMEType: mime}, nil
}

var _ Adapter = (*FluxAdapter)(nil)
