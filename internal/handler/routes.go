package handler

import (
	"net/http"

	"github.com/Dan9191/fee-registry/internal/middleware"
	"github.com/gorilla/mux"
)

// NewRouter wires public and session-protected routes.
func NewRouter(h *Handler, hub *Hub, verifier middleware.Verifier, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/healthz", h.Health).Methods("GET")
	r.Handle("/metrics", metrics).Methods("GET")

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(verifier))
	authRouter.HandleFunc("/students", h.ListStudents).Methods("GET")
	authRouter.HandleFunc("/students", h.CreateStudent).Methods("POST")
	authRouter.HandleFunc("/students/clear", h.ClearForm).Methods("POST")
	authRouter.HandleFunc("/students/name", h.SanitizeName).Methods("POST")
	authRouter.HandleFunc("/students/table", h.StudentsTable).Methods("GET")
	authRouter.HandleFunc("/students/stats", h.Stats).Methods("GET")
	authRouter.HandleFunc("/students/export.xml", h.ExportXML).Methods("GET")
	authRouter.HandleFunc("/ws", hub.ServeWS).Methods("GET")
	return r
}
