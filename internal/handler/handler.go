package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Dan9191/fee-registry/internal/auth"
	"github.com/Dan9191/fee-registry/internal/controller"
	"github.com/Dan9191/fee-registry/internal/export"
	"github.com/Dan9191/fee-registry/internal/middleware"
	"github.com/Dan9191/fee-registry/internal/models"
	"github.com/Dan9191/fee-registry/internal/render"
	"github.com/Dan9191/fee-registry/internal/service"
	"github.com/sirupsen/logrus"
)

// Viewer exposes the controller's current state.
type Viewer interface {
	View(term string) controller.View
	Records() []models.StudentRecord
}

type Handler struct {
	svc  *service.Service
	view Viewer
	log  *logrus.Logger
}

func NewHandler(svc *service.Service, view Viewer, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, view: view, log: log}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Login handles the mock login form
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	session, err := h.svc.Login(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: capitalize(err.Error())})
		case errors.Is(err, auth.ErrEmptyCredentials),
			errors.Is(err, auth.ErrUsernameDigits),
			errors.Is(err, auth.ErrWeakPassword):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: capitalize(err.Error())})
		default:
			h.log.WithError(err).Error("Failed to create session")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to create session"})
		}
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, session)
}

// ListStudents returns the rendered table and totals for the search term
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.view.View(r.URL.Query().Get("search")))
}

// CreateStudent handles the registration form
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var in models.StudentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	rec, err := h.svc.RegisterStudent(r.Context(), in)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case models.IsValidation(err):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, models.ErrPersistence):
			status = http.StatusBadGateway
		}
		writeJSON(w, status, errorResponse{Error: service.UserMessage(err), Kind: models.KindOf(err)})
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ClearForm acknowledges a form reset
func (h *Handler) ClearForm(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearForm()
	w.WriteHeader(http.StatusNoContent)
}

// SanitizeName strips digits from a name as it is typed
func (h *Handler) SanitizeName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentName string `json:"studentName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"studentName": h.svc.SanitizeName(req.StudentName)})
}

// StudentsTable returns the table body as an HTML fragment
func (h *Handler) StudentsTable(w http.ResponseWriter, r *http.Request) {
	v := h.view.View(r.URL.Query().Get("search"))
	var body string
	switch {
	case v.Status != controller.StatusLive:
		class := ""
		if v.Status == controller.StatusError {
			class = "error"
		}
		body = render.StatusRow(v.Message, class)
	default:
		body = render.Table(v.Rows)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// Stats returns the aggregate totals over every record
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	v := h.view.View("")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":  v.Stats,
		"labels": v.Labels,
	})
}

// ExportXML streams every record as XML
func (h *Handler) ExportXML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="students.xml"`)
	if err := export.WriteXML(w, h.view.Records()); err != nil {
		h.log.WithError(err).Error("Failed to export students")
	}
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
