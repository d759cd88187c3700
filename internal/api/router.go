package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-irclimate/internal/panel"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.metricsCfg.Enabled && s.metrics != nil {
		r.Handle(s.metricsPath(), s.metrics.Handler())
	}

	r.Get("/panel", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/panel/", http.StatusMovedPermanently)
	})
	r.Handle("/panel/*", http.StripPrefix("/panel", panel.Handler(s.cfg.PanelDir)))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system", s.handleSystem)

		r.Route("/climates", func(r chi.Router) {
			r.Get("/", s.handleListClimates)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetClimate)
				r.Get("/history", s.handleGetClimateHistory)
				r.Post("/commands", s.handleClimateCommand)

				r.Put("/temperature", s.handleSetTemperature)
				r.Put("/fan_mode", s.handleSetFanMode)
				r.Put("/operation_mode", s.handleSetOperationMode)
				r.Put("/away_mode", s.handleSetAwayMode)
				r.Post("/turn_on", s.handleTurnOn)
				r.Post("/turn_off", s.handleTurnOff)
			})
		})

		r.Get("/audit", s.handleListAudit)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

func (s *Server) metricsPath() string {
	if s.metricsCfg.Path == "" {
		return "/metrics"
	}
	return s.metricsCfg.Path
}

// handleHealth reports "ok" while the bridge runs and "degraded" otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status, code := "ok", http.StatusOK
	if !s.climate.IsRunning() {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	resp := map[string]any{
		"status":         status,
		"version":        s.version,
		"bridge_running": s.climate.IsRunning(),
	}
	if s.mqtt != nil {
		resp["mqtt_connected"] = s.mqtt.IsConnected()
	}
	writeJSON(w, code, resp)
}
