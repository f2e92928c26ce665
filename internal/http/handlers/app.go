package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"headshot/internal/domain"
	"headshot/internal/infra"
	"headshot/internal/middleware"
	"headshot/internal/usage"
	"headshot/internal/workflow"
)

type App struct {
	Config   *infra.Config
	Logger   zerolog.Logger
	Sessions *workflow.Registry
	Ledger   *usage.Ledger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, msg string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": errCode, "message": msg},
	})
}

func (a *App) currentIdentity(r *http.Request) string {
	return middleware.IdentityFromContext(r.Context())
}

// apiError is a mapped service error ready to be written.
type apiError struct {
	status  int
	code    string
	message string
}

// classify maps service errors onto HTTP statuses. Unexpected errors are
// logged here since their text never reaches the client.
func (a *App) classify(r *http.Request, err error) apiError {
	var remote *domain.RemoteGenerationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return apiError{http.StatusNotFound, "not_found", "session not found"}
	case errors.Is(err, domain.ErrBusy):
		return apiError{http.StatusConflict, "busy", "a generation is in progress or finished; reset the session first"}
	case errors.Is(err, domain.ErrNoResult):
		return apiError{http.StatusNotFound, "no_result", "no generated headshot to download"}
	case errors.Is(err, domain.ErrTooLarge):
		return apiError{http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("each image must be %dMB or smaller", a.Config.MaxUploadBytes>>20)}
	case errors.Is(err, domain.ErrValidation):
		return apiError{http.StatusUnprocessableEntity, "validation", workflow.UserMessage(err)}
	case errors.As(err, &remote):
		return apiError{http.StatusBadGateway, "generation_failed", remote.Error()}
	}
	a.Logger.Error().Err(err).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("path", r.URL.Path).
		Msg("request failed")
	return apiError{http.StatusInternalServerError, "internal", "something went wrong, please try again"}
}

func (a *App) domainError(w http.ResponseWriter, r *http.Request, err error) {
	e := a.classify(r, err)
	a.error(w, e.status, e.code, e.message)
}

// sessionError is domainError plus the session snapshot, for requests that
// may have partly changed the session before failing.
func (a *App) sessionError(w http.ResponseWriter, r *http.Request, err error, snap workflow.Snapshot) {
	e := a.classify(r, err)
	a.json(w, e.status, map[string]any{
		"error":   map[string]string{"code": e.code, "message": e.message},
		"session": snap,
	})
}

// Health reports liveness plus the number of live workflow sessions.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": a.Sessions.Len(),
	})
}
