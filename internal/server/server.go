package server

import (
	"log/slog"
	"net/http"

	"shipdash/internal/handlers"
	"shipdash/internal/store"
)

type Server struct {
	store       *store.Store
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(st *store.Store, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		store:       st,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(st, logger),
		sseHandlers: handlers.NewSSEHandlers(st, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

// setupRoutes registers GET-only patterns; the mux answers 405 for any
// other method on these paths.
func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleAdminStats)

	// REST API endpoints. The literal /stats route wins over the {name}
	// wildcard, so a company named "stats" is unreachable by design.
	s.mux.HandleFunc("GET /api/shipments", s.apiHandlers.HandleListShipments)
	s.mux.HandleFunc("GET /api/companies", s.apiHandlers.HandleListCompanies)
	s.mux.HandleFunc("GET /api/companies/stats", s.apiHandlers.HandleCompanyStats)
	s.mux.HandleFunc("GET /api/companies/{name}", s.apiHandlers.HandleCompanyDetail)

	// Datastar SSE fragment endpoints
	s.mux.HandleFunc("GET /sse/companies", s.sseHandlers.HandleCompanies)
	s.mux.HandleFunc("GET /sse/commodities", s.sseHandlers.HandleTopCommodities)
	s.mux.HandleFunc("GET /sse/monthly-volume", s.sseHandlers.HandleMonthlyVolume)
	s.mux.HandleFunc("GET /sse/stats", s.sseHandlers.HandleStatsCards)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
