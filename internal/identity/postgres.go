package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"headshot/internal/domain"
	"headshot/internal/infra"
	"headshot/internal/sqlinline"
)

// PGDirectory reads identities mirrored into PostgreSQL by the billing
// webhook (or cmd/userplan).
type PGDirectory struct {
	sql infra.SQLExecutor
}

func NewPGDirectory(sql infra.SQLExecutor) *PGDirectory {
	return &PGDirectory{sql: sql}
}

func (d *PGDirectory) IsSignedIn(ctx context.Context, id string) (bool, error) {
	var active bool
	if err := d.sql.QueryRow(ctx, sqlinline.QSelectIdentitySignedIn, id).Scan(&active); err != nil {
		if infra.IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("identity: signed-in check: %w", err)
	}
	return active, nil
}

func (d *PGDirectory) HasPlan(ctx context.Context, id, planKey string) (bool, error) {
	var has bool
	if err := d.sql.QueryRow(ctx, sqlinline.QSelectIdentityHasPlan, id, planKey).Scan(&has); err != nil {
		if infra.IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("identity: plan check %q: %w", planKey, err)
	}
	return has, nil
}

func (d *PGDirectory) Metadata(ctx context.Context, id string) (domain.Metadata, error) {
	var raw []byte
	if err := d.sql.QueryRow(ctx, sqlinline.QSelectIdentityMetadata, id).Scan(&raw); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("identity: read metadata: %w", err)
	}
	return decodeMetadata(raw)
}

func (d *PGDirectory) UpdateMetadata(ctx context.Context, id string, md domain.Metadata) (domain.Metadata, error) {
	payload, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("identity: encode metadata: %w", err)
	}
	var raw []byte
	if err := d.sql.QueryRow(ctx, sqlinline.QUpdateIdentityMetadata, id, payload).Scan(&raw); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("identity: write metadata: %w", err)
	}
	return decodeMetadata(raw)
}

func decodeMetadata(raw []byte) (domain.Metadata, error) {
	md := domain.Metadata{}
	if len(raw) == 0 {
		return md, nil
	}
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil, fmt.Errorf("identity: decode metadata: %w", err)
	}
	return md, nil
}

var _ Directory = (*PGDirectory)(nil)
