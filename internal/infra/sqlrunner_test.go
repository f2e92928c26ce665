package infra

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractMarker(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		marker  string
		wantSQL string
		wantErr bool
	}{
		{
			name:    "valid marker",
			query:   "--sql 6d4f5660-0f7c-4f73-a1f3-9ab6d5e6c7a3\nselect 1;",
			marker:  "6d4f5660-0f7c-4f73-a1f3-9ab6d5e6c7a3",
			wantSQL: "select 1;",
		},
		{
			name:    "leading whitespace",
			query:   "\n  --sql 6d4f5660-0f7c-4f73-a1f3-9ab6d5e6c7a3\nselect 1;\n",
			marker:  "6d4f5660-0f7c-4f73-a1f3-9ab6d5e6c7a3",
			wantSQL: "select 1;",
		},
		{name: "no marker", query: "select 1;", wantErr: true},
		{name: "bad uuid", query: "--sql nope\nselect 1;", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			marker, sql, err := ExtractMarker(tc.query)
			if tc.wantErr {
				if !errors.Is(err, ErrMissingMarker) {
					t.Fatalf("ExtractMarker() error = %v, want ErrMissingMarker", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractMarker() error: %v", err)
			}
			if marker != tc.marker || strings.TrimSpace(sql) != tc.wantSQL {
				t.Fatalf("ExtractMarker() = %q, %q", marker, sql)
			}
		})
	}
}
