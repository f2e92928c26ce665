package identity

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"headshot/internal/domain"
)

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	return r.scan(dest...)
}

type stubExecutor struct {
	plans    map[string]bool
	metadata []byte
	missing  bool
	lastArgs []any
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.lastArgs = args
	if s.missing {
		return stubRow{scan: func(dest ...any) error { return pgx.ErrNoRows }}
	}
	switch {
	case strings.Contains(query, "signed_out_at is null"):
		return stubRow{scan: func(dest ...any) error {
			*dest[0].(*bool) = true
			return nil
		}}
	case strings.Contains(query, "any(plan_keys)"):
		return stubRow{scan: func(dest ...any) error {
			*dest[0].(*bool) = s.plans[args[1].(string)]
			return nil
		}}
	case strings.Contains(query, "update identities"):
		s.metadata = append([]byte(nil), args[1].([]byte)...)
		return stubRow{scan: func(dest ...any) error {
			*dest[0].(*[]byte) = s.metadata
			return nil
		}}
	case strings.Contains(query, "metadata"):
		return stubRow{scan: func(dest ...any) error {
			*dest[0].(*[]byte) = s.metadata
			return nil
		}}
	}
	return stubRow{scan: func(dest ...any) error { return errors.New("unexpected query") }}
}

func TestPGDirectoryPlans(t *testing.T) {
	exec := &stubExecutor{plans: map[string]bool{"standard-plan": true}}
	dir := NewPGDirectory(exec)
	ctx := context.Background()

	ok, err := dir.IsSignedIn(ctx, "user-1")
	if err != nil || !ok {
		t.Fatalf("IsSignedIn() = %v, %v", ok, err)
	}
	has, err := dir.HasPlan(ctx, "user-1", "standard-plan")
	if err != nil || !has {
		t.Fatalf("HasPlan(standard-plan) = %v, %v", has, err)
	}
	has, err = dir.HasPlan(ctx, "user-1", "standard_plan")
	if err != nil || has {
		t.Fatalf("HasPlan(standard_plan) = %v, %v", has, err)
	}
}

func TestPGDirectoryMetadata(t *testing.T) {
	exec := &stubExecutor{metadata: []byte(`{"generationsUsed":1,"theme":"dark"}`)}
	dir := NewPGDirectory(exec)
	ctx := context.Background()

	md, err := dir.Metadata(ctx, "user-1")
	if err != nil {
		t.Fatalf("Metadata() error: %v", err)
	}
	if md["theme"] != "dark" {
		t.Fatalf("Metadata() lost unrelated keys: %#v", md)
	}
	md[domain.MetaGenerationsUsed] = 2
	reloaded, err := dir.UpdateMetadata(ctx, "user-1", md)
	if err != nil {
		t.Fatalf("UpdateMetadata() error: %v", err)
	}
	var written map[string]any
	if err := json.Unmarshal(exec.metadata, &written); err != nil {
		t.Fatalf("decode written metadata: %v", err)
	}
	if written[domain.MetaGenerationsUsed] != float64(2) || written["theme"] != "dark" {
		t.Fatalf("written metadata = %#v", written)
	}
	if reloaded[domain.MetaGenerationsUsed] != float64(2) {
		t.Fatalf("reloaded metadata = %#v", reloaded)
	}
}

func TestPGDirectoryUnknownIdentity(t *testing.T) {
	dir := NewPGDirectory(&stubExecutor{missing: true})
	ctx := context.Background()

	if ok, err := dir.IsSignedIn(ctx, "ghost"); err != nil || ok {
		t.Fatalf("IsSignedIn() = %v, %v; want false, nil", ok, err)
	}
	if has, err := dir.HasPlan(ctx, "ghost", "standard_plan"); err != nil || has {
		t.Fatalf("HasPlan() = %v, %v; want false, nil", has, err)
	}
	if _, err := dir.Metadata(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Metadata() error = %v, want ErrNotFound", err)
	}
}
