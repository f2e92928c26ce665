package identity

import (
	"context"
	"encoding/json"
	"sync"

	"headshot/internal/domain"
)

// MemoryDirectory is an in-process Directory used when no database is
// configured. Metadata round-trips through JSON so it behaves like the
// remote provider (numbers come back as float64, times as strings).
type MemoryDirectory struct {
	mu         sync.Mutex
	identities map[string]*memoryIdentity
	autoEnroll bool
}

type memoryIdentity struct {
	signedIn bool
	plans    map[string]struct{}
	metadata []byte
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{identities: make(map[string]*memoryIdentity)}
}

// AutoEnroll makes IsSignedIn register unknown identities as signed-in with
// no plan keys (free tier). Identities that signed out stay signed out. It is
// how the service runs without a database: any validly signed token works.
func (d *MemoryDirectory) AutoEnroll() *MemoryDirectory {
	d.mu.Lock()
	d.autoEnroll = true
	d.mu.Unlock()
	return d
}

// Put registers or replaces an identity with the given plan keys.
func (d *MemoryDirectory) Put(id string, planKeys ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	plans := make(map[string]struct{}, len(planKeys))
	for _, key := range planKeys {
		plans[key] = struct{}{}
	}
	existing := d.identities[id]
	meta := []byte("{}")
	if existing != nil {
		meta = existing.metadata
	}
	d.identities[id] = &memoryIdentity{signedIn: true, plans: plans, metadata: meta}
}

// SignOut marks the identity as no longer authenticated.
func (d *MemoryDirectory) SignOut(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ident, ok := d.identities[id]; ok {
		ident.signedIn = false
	}
}

func (d *MemoryDirectory) IsSignedIn(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ident, ok := d.identities[id]
	if !ok && d.autoEnroll && id != "" {
		ident = &memoryIdentity{signedIn: true, plans: map[string]struct{}{}, metadata: []byte("{}")}
		d.identities[id] = ident
		ok = true
	}
	return ok && ident.signedIn, nil
}

func (d *MemoryDirectory) HasPlan(ctx context.Context, id, planKey string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ident, ok := d.identities[id]
	if !ok {
		return false, nil
	}
	_, has := ident.plans[planKey]
	return has, nil
}

func (d *MemoryDirectory) Metadata(ctx context.Context, id string) (domain.Metadata, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ident, ok := d.identities[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return decodeMetadata(ident.metadata)
}

func (d *MemoryDirectory) UpdateMetadata(ctx context.Context, id string, md domain.Metadata) (domain.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ident, ok := d.identities[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	ident.metadata = raw
	return decodeMetadata(raw)
}

var _ Directory = (*MemoryDirectory)(nil)
