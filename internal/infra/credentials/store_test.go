package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExecutor struct {
	token   string
	err     error
	queried bool
	exec    struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.queried = true
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestGeminiAPIKeyFromStore(t *testing.T) {
	store := NewStore(&stubExecutor{token: " abc123 "})
	key, err := store.GeminiAPIKey(context.Background(), "")
	if err != nil {
		t.Fatalf("GeminiAPIKey error: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("expected abc123, got %q", key)
	}
}

func TestGeminiAPIKeyPrefersConfigured(t *testing.T) {
	exec := &stubExecutor{token: "stored"}
	key, err := NewStore(exec).GeminiAPIKey(context.Background(), " env-key ")
	if err != nil {
		t.Fatalf("GeminiAPIKey error: %v", err)
	}
	if key != "env-key" {
		t.Fatalf("expected env-key, got %q", key)
	}
	if exec.queried {
		t.Fatalf("store should not be queried when a key is configured")
	}
}

func TestGeminiAPIKeyNoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	key, err := store.GeminiAPIKey(context.Background(), "")
	if err != nil {
		t.Fatalf("GeminiAPIKey error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestGeminiAPIKeyNilStore(t *testing.T) {
	var store *Store
	key, err := store.GeminiAPIKey(context.Background(), "")
	if err != nil || key != "" {
		t.Fatalf("GeminiAPIKey() = %q, %v; want empty", key, err)
	}
}

func TestSetGeminiAPIKey(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetGeminiAPIKey(context.Background(), "secret", "gemini-test"); err != nil {
		t.Fatalf("SetGeminiAPIKey error: %v", err)
	}
	if len(exec.exec.args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
		t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
	var props map[string]any
	if err := json.Unmarshal(exec.exec.args[2].([]byte), &props); err != nil {
		t.Fatalf("decode props: %v", err)
	}
	if props["model"] != "gemini-test" {
		t.Fatalf("expected model property, got %#v", props)
	}
}

func TestSetGeminiAPIKeyEmpty(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SetGeminiAPIKey(context.Background(), " ", ""); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}
