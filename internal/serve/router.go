package serve

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter serves the generated output tree as static files, with the SSE
// reload stream mounted at /_events.
func NewRouter(outputDir string, broker *Broker) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/_events", broker.ServeHTTP)
	r.Handle("/*", http.FileServer(http.Dir(outputDir)))

	return r
}
