package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers every endpoint. gatherer backs /metrics.
func NewRouter(h *ApiHandler, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestLogger(h.logger))

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/register", h.RegisterUser).Methods(http.MethodPost)
	apiRouter.HandleFunc("/login", h.LoginUser).Methods(http.MethodPost)

	s := apiRouter.PathPrefix("/").Subrouter()
	s.Use(h.AuthMiddleware)
	s.HandleFunc("/profile", h.GetProfile).Methods(http.MethodGet)
	s.HandleFunc("/profile", h.UpdateProfile).Methods(http.MethodPatch)
	s.HandleFunc("/lessons", h.GetLessons).Methods(http.MethodGet)
	s.HandleFunc("/lessons/{lesson_id:[0-9]+}", h.GetLesson).Methods(http.MethodGet)
	s.HandleFunc("/lessons/{lesson_id:[0-9]+}/grade", h.GradeLesson).Methods(http.MethodPost)
	s.HandleFunc("/lessons/{lesson_id:[0-9]+}/reference", h.GenerateReference).Methods(http.MethodPost)
	s.HandleFunc("/lessons/{lesson_id:[0-9]+}/starter", h.GenerateStarter).Methods(http.MethodPost)
	s.HandleFunc("/lessons/{lesson_id:[0-9]+}/practice", h.GeneratePractice).Methods(http.MethodPost)
	s.HandleFunc("/run", h.RunCode).Methods(http.MethodPost)
	s.HandleFunc("/progress/complete", h.CompleteLesson).Methods(http.MethodPost)

	if h.mediaDir != "" {
		r.PathPrefix("/media/").Handler(http.StripPrefix("/media/", http.FileServer(http.Dir(h.mediaDir)))).Methods(http.MethodGet)
	}

	return r
}
