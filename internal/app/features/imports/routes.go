// internal/app/features/imports/routes.go
package imports

import (
	"github.com/baymark/rollcall/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the import workflow under the caller's path.
// Typically: r.Mount("/imports", imports.Routes(handler))
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireOperator)

		pr.Post("/", h.HandleCreate)
		pr.Get("/", h.HandleList)
		pr.Get("/{batchID}", h.HandleGet)
		pr.Post("/{batchID}/process", h.HandleProcess)
		pr.Post("/{batchID}/selection", h.HandleToggleSelection)
		pr.Post("/{batchID}/selection/all", h.HandleSetAllSelections)
		pr.Post("/{batchID}/dry-run", h.HandleDryRun)
		pr.Post("/{batchID}/decision", h.HandleDecision)
		pr.Post("/{batchID}/execute", h.HandleExecute)
		pr.Post("/{batchID}/reset", h.HandleReset)
		pr.Delete("/{batchID}", h.HandleDelete)
	})

	return r
}
