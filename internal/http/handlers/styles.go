package handlers

import (
	"net/http"

	"headshot/internal/domain"
)

func (a *App) Styles(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"defaultPrompt": domain.DefaultPrompt,
		"presets":       domain.StylePresets,
	})
}
