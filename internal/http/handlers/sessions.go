package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"headshot/internal/domain"
	"headshot/internal/workflow"
)

const upgradeMessage = "You've used all generations included in your plan. Upgrade to keep creating professional headshots without watermarks."

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Session workflow.Snapshot `json:"session"`
	Text    string            `json:"text,omitempty"`
	Warning string            `json:"warning,omitempty"`
}

// session resolves {id} for the caller; it writes the error response itself.
func (a *App) session(w http.ResponseWriter, r *http.Request) (*workflow.Session, bool) {
	identity := a.currentIdentity(r)
	if identity == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "session not found")
		return nil, false
	}
	s, err := a.Sessions.Get(identity, id)
	if err != nil {
		a.domainError(w, r, err)
		return nil, false
	}
	return s, true
}

func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	identity := a.currentIdentity(r)
	if identity == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	// Session start is when the usage record is (re)read.
	if _, err := a.Ledger.Load(r.Context(), identity); err != nil {
		var perr *domain.PersistenceError
		if !errors.As(err, &perr) {
			a.domainError(w, r, err)
			return
		}
	}
	s := a.Sessions.Create(identity)
	a.json(w, http.StatusCreated, s.Snapshot())
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	if err := a.Sessions.Delete(s.IdentityID, s.ID); err != nil {
		a.domainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) SetPrompt(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := s.SetPrompt(req.Prompt); err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

func (a *App) RemoveImage(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "index must be a number")
		return
	}
	if _, err := s.RemoveImage(index); err != nil {
		if errors.Is(err, domain.ErrIndexOutOfRange) {
			a.error(w, http.StatusNotFound, "not_found", "image not found")
			return
		}
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

func (a *App) ResetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	if err := s.Reset(); err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

// Generate blocks until the generator answers. An exhausted quota answers
// 402 with the plan table instead of an error.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	out, err := s.Generate(r.Context())
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if out.UpgradeRequired {
		current, _ := a.Ledger.Tier(r.Context(), s.IdentityID)
		a.json(w, http.StatusPaymentRequired, map[string]any{
			"error":           map[string]string{"code": "upgrade_required", "message": upgradeMessage},
			"upgradeRequired": true,
			"plans":           planTable(current),
			"session":         s.Snapshot(),
		})
		return
	}
	a.json(w, http.StatusOK, generateResponse{Session: s.Snapshot(), Text: out.Text, Warning: out.Warning})
}

func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	name, data, err := s.Download()
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
