// internal/app/features/groups/routes.go
package groups

import "github.com/go-chi/chi/v5"

// Routes returns the group administration API, mounted under /groups.
// Callers are trusted; authentication happens in front of this router.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// CREATE
	r.Post("/", h.HandleCreateGroup)

	// ESTIMATE (before /{id} so the literal path wins)
	r.Get("/automatic-membership-count", h.ServeAutomaticMembershipCount)

	// BULK JOB STATUS
	r.Get("/bulk-jobs/{jobID}", h.ServeBulkJob)

	r.Route("/{id}", func(gr chi.Router) {
		// VIEW / EDIT / DELETE
		gr.Get("/", h.ServeGroup)
		gr.Patch("/", h.HandleUpdateGroup)
		gr.Delete("/", h.HandleDestroyGroup)

		// OWNERS
		gr.Get("/owners", h.ServeOwners)
		gr.Put("/owners", h.HandleAddOwners)
		gr.Delete("/owners", h.HandleRemoveOwner)

		// BULK ASSIGN
		gr.Put("/bulk", h.HandleBulkAssign)
	})

	return r
}
