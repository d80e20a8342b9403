// Package httpapi exposes the marketplace REST API: listing and editing swap
// items, browsing fuzzy matches, making and resolving offers, the admin
// review queue, points balances and notification inboxes.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/swaphub/marketplace/internal/auth"
	"github.com/swaphub/marketplace/internal/catalog"
	"github.com/swaphub/marketplace/internal/messaging"
	"github.com/swaphub/marketplace/internal/metrics"
	"github.com/swaphub/marketplace/internal/notify"
	"github.com/swaphub/marketplace/internal/offers"
	"github.com/swaphub/marketplace/internal/points"
	"github.com/swaphub/marketplace/internal/ratelimit"
	"github.com/swaphub/marketplace/internal/session"
	"github.com/swaphub/marketplace/internal/users"
)

// API bundles the stores and infrastructure the handlers need.
type API struct {
	catalog  *catalog.Store
	offers   *offers.Store
	users    *users.Store
	points   *points.Store
	inbox    *notify.Store
	sessions *session.Store
	verifier *auth.Verifier
	limiter  *ratelimit.Limiter
	nats     *messaging.NATSClient

	// approvalPoints is awarded to the owner when a listing passes review.
	approvalPoints int64
}

// Config holds the API's dependencies.
type Config struct {
	Catalog        *catalog.Store
	Offers         *offers.Store
	Users          *users.Store
	Points         *points.Store
	Inbox          *notify.Store
	Sessions       *session.Store
	Verifier       *auth.Verifier
	Limiter        *ratelimit.Limiter
	NATS           *messaging.NATSClient
	ApprovalPoints int64
}

// New creates the API with its dependencies.
func New(cfg Config) *API {
	return &API{
		catalog:        cfg.Catalog,
		offers:         cfg.Offers,
		users:          cfg.Users,
		points:         cfg.Points,
		inbox:          cfg.Inbox,
		sessions:       cfg.Sessions,
		verifier:       cfg.Verifier,
		limiter:        cfg.Limiter,
		nats:           cfg.NATS,
		approvalPoints: cfg.ApprovalPoints,
	}
}

// Router builds the chi router with all routes and middleware attached.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(a.withAuth)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", a.handleListItems)
			r.Post("/", a.rateLimit(ratelimit.RuleListItem, a.handleCreateItem))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.handleGetItem)
				r.Put("/", a.handleUpdateItem)
				r.Delete("/", a.handleDeleteItem)
				r.Get("/matches", a.rateLimit(ratelimit.RuleMatch, a.handleMatches))
			})
		})

		r.Route("/offers", func(r chi.Router) {
			r.Get("/", a.handleListOffers)
			r.Post("/", a.rateLimit(ratelimit.RuleOffer, a.handleCreateOffer))
			r.Post("/{id}/accept", a.handleAcceptOffer)
			r.Post("/{id}/reject", a.handleRejectOffer)
		})

		r.Get("/points", a.handlePoints)
		r.Get("/notifications", a.handleNotifications)
		r.Delete("/notifications", a.handleClearNotifications)
		r.Put("/profile/location", a.handleSetLocation)

		r.Route("/admin", func(r chi.Router) {
			r.Use(a.withAdmin)
			r.Get("/review", a.handleReviewQueue)
			r.Post("/items/{id}/approve", a.handleApprove)
			r.Post("/items/{id}/reject", a.handleReject)
		})
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
