package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(apiHandler *APIHandler, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Operator routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			r.Get("/records", apiHandler.ListRecordsHandler)
			r.Post("/records/reload", apiHandler.ReloadRecordsHandler)
			r.Delete("/records/{index}", apiHandler.DeleteRecordHandler)
			r.Get("/records/{index}/export", apiHandler.ExportRecordHandler)

			r.Get("/dossiers", apiHandler.ListDossiersHandler)
			r.Post("/dossiers/summary", apiHandler.WeeklySummaryHandler)

			r.Route("/capture", func(r chi.Router) {
				r.Get("/", apiHandler.CaptureStatusHandler)
				r.Post("/start", apiHandler.StartCaptureHandler)
				r.Post("/chunk", apiHandler.CaptureChunkHandler)
				r.Post("/stop", apiHandler.StopCaptureHandler)
				r.Put("/transcript", apiHandler.SetTranscriptHandler)
				r.Post("/save", apiHandler.SaveCaptureHandler)
			})
		})
	})

	return r
}
