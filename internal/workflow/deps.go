// Package workflow drives one headshot attempt through Upload, Generating
// and Result. Sessions are explicit objects owned by a Registry.
package workflow

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"headshot/internal/domain"
	"headshot/internal/usage"
)

// Generator is the remote image model.
type Generator interface {
	GenerateHeadshot(ctx context.Context, images []domain.UploadedImage, prompt string) (domain.GenerationResult, error)
}

// Watermarker stamps free-tier output and returns PNG bytes.
type Watermarker interface {
	Apply(img []byte, mediaType string) ([]byte, error)
}

// Ledger is the part of usage.Ledger the workflow needs. Reserve admits a
// generation against the quota; the slot ends in Increment or Release.
type Ledger interface {
	Reserve(ctx context.Context, id string) (bool, error)
	Release(id string)
	Tier(ctx context.Context, id string) (domain.PlanTier, error)
	Increment(ctx context.Context, id string) (domain.UsageRecord, error)
	Forget(id string)
}

// EventRecorder receives one record per generation attempt.
type EventRecorder interface {
	Record(ctx context.Context, ev usage.Event)
}

// Deps are shared by every session of a Registry.
type Deps struct {
	Generator   Generator
	Watermarker Watermarker
	Ledger      Ledger
	Events      EventRecorder
	Logger      zerolog.Logger
	Clock       func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

func (d *Deps) record(ctx context.Context, ev usage.Event) {
	if d.Events != nil {
		d.Events.Record(ctx, ev)
	}
}
