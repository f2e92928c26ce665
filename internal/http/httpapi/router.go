package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"headshot/internal/http/handlers"
	"headshot/internal/middleware"
	"headshot/internal/usage"
)

// signInGate drops the cached usage record of identities that fail the
// sign-in check, so a later sign-in reloads plan and counters.
type signInGate struct {
	next   middleware.SignInChecker
	ledger *usage.Ledger
}

func (g signInGate) IsSignedIn(ctx context.Context, id string) (bool, error) {
	ok, err := g.next.IsSignedIn(ctx, id)
	if err == nil && !ok && g.ledger != nil {
		g.ledger.Forget(id)
	}
	return ok, err
}

func NewRouter(app *handlers.App, checker middleware.SignInChecker) http.Handler {
	if checker != nil {
		checker = signInGate{next: checker, ledger: app.Ledger}
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.CORSAllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))

		r.Get("/v1/styles", app.Styles)
		r.With(middleware.OptionalAuth(app.Config.JWTSecret, checker)).Get("/v1/pricing", app.Pricing)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(app.Config.JWTSecret, checker))
			r.Get("/v1/usage", app.Usage)
			r.Route("/v1/sessions", func(r chi.Router) {
				r.Post("/", app.CreateSession)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", app.GetSession)
					r.Delete("/", app.DeleteSession)
					r.Post("/images", app.UploadImages)
					r.Delete("/images/{index}", app.RemoveImage)
					r.Put("/prompt", app.SetPrompt)
					r.Post("/generate", app.Generate)
					r.Post("/reset", app.ResetSession)
					r.Get("/download", app.Download)
				})
			})
		})
	})

	return r
}
