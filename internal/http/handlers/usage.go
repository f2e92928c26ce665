package handlers

import "net/http"

func (a *App) Usage(w http.ResponseWriter, r *http.Request) {
	id := a.currentIdentity(r)
	if id == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	summary, err := a.Ledger.Summary(r.Context(), id)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, summary)
}
