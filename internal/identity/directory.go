// Package identity adapts the external auth/billing provider. The rest of the
// service only sees the narrow Directory contract.
package identity

import (
	"context"

	"headshot/internal/domain"
)

// Directory is the capability surface of the auth/billing provider.
type Directory interface {
	// IsSignedIn reports whether id is a known, currently authenticated identity.
	IsSignedIn(ctx context.Context, id string) (bool, error)
	// HasPlan reports whether the identity holds the billing plan planKey.
	HasPlan(ctx context.Context, id, planKey string) (bool, error)
	// Metadata reads the identity's metadata record whole.
	Metadata(ctx context.Context, id string) (domain.Metadata, error)
	// UpdateMetadata writes the record whole and returns it as reloaded
	// from the provider.
	UpdateMetadata(ctx context.Context, id string, md domain.Metadata) (domain.Metadata, error)
}
