package contracts

import (
	"net/http"

	apperrors "bookline/pkg/errors"
	httputil "bookline/pkg/http"

	"github.com/julienschmidt/httprouter"
)

// Handler is implemented by every component that exposes REST routes.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// NewRouter mounts handlers on a router whose unknown-route and wrong-method
// answers use the JSON error envelope.
func NewRouter(handlers ...Handler) *httprouter.Router {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httputil.WriteError(w, apperrors.NotFound("Route "+r.URL.Path))
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httputil.WriteError(w, apperrors.New(apperrors.CodeInvalidInput, "Method "+r.Method+" is not allowed on "+r.URL.Path, http.StatusMethodNotAllowed))
	})
	for _, h := range handlers {
		h.RegisterRoutes(router)
	}
	return router
}
