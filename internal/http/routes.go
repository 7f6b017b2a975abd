package httpx

import (
	"log/slog"
	"net/http"

	"github.com/talentforge/insights/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Profiles *service.ProfileService
	Insights *service.InsightsService

	// MaxUploadBytes caps uploaded document size. Zero means unlimited.
	MaxUploadBytes int64
	Logger         *slog.Logger // Logger for request logging and panics (optional)
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	profileHandlers := &ProfileHandlers{
		Svc:            services.Profiles,
		MaxUploadBytes: services.MaxUploadBytes,
	}
	insightHandlers := &InsightHandlers{Svc: services.Insights}

	registerProfileRoutes(mux, profileHandlers)
	registerInsightRoutes(mux, insightHandlers)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	var handler http.Handler = mux
	if services.Logger != nil {
		handler = Logging(services.Logger)(handler)
		handler = Recover(services.Logger)(handler)
	}
	return handler
}

func registerProfileRoutes(mux *http.ServeMux, h *ProfileHandlers) {
	mux.HandleFunc("POST /api/profiles", h.Ingest)
	mux.HandleFunc("GET /api/profiles", h.List)
	mux.HandleFunc("GET /api/profiles/{id}", h.Get)
	mux.HandleFunc("PUT /api/profiles/{id}/document", h.Reingest)
	mux.HandleFunc("DELETE /api/profiles/{id}", h.Delete)
}

func registerInsightRoutes(mux *http.ServeMux, h *InsightHandlers) {
	mux.HandleFunc("POST /api/profiles/{id}/score", h.Score)
	mux.HandleFunc("POST /api/profiles/{id}/insights/salary", h.Salary)
	mux.HandleFunc("POST /api/profiles/{id}/insights/salary/persist", h.PersistSalary)
	mux.HandleFunc("POST /api/profiles/{id}/insights/upskilling", h.Upskilling)
	mux.HandleFunc("GET /api/profiles/{id}/insights/{kind}", h.History)
	mux.HandleFunc("GET /api/executions/{id}", h.ExecutionStatus)
}
