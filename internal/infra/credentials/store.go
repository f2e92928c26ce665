// Package credentials keeps provider API keys in the integration_tokens table
// so operators can rotate them without redeploying.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"headshot/internal/infra"
	"headshot/internal/sqlinline"
)

const ProviderGemini = "gemini"

var ErrEmptyKey = errors.New("api key is required")

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Token returns the stored token for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("load %s token: %w", provider, err)
	}
	return strings.TrimSpace(token), nil
}

// GeminiAPIKey prefers the explicitly configured key and falls back to the
// stored one.
func (s *Store) GeminiAPIKey(ctx context.Context, configured string) (string, error) {
	if key := strings.TrimSpace(configured); key != "" {
		return key, nil
	}
	if s == nil || s.sql == nil {
		return "", nil
	}
	return s.Token(ctx, ProviderGemini)
}

// SetGeminiAPIKey stores key, recording the model it was provisioned for.
func (s *Store) SetGeminiAPIKey(ctx context.Context, key, model string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	props := map[string]any{}
	if model = strings.TrimSpace(model); model != "" {
		props["model"] = model
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, ProviderGemini, key, raw); err != nil {
		return fmt.Errorf("store %s token: %w", ProviderGemini, err)
	}
	return nil
}
