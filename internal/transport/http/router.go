package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"jsquiz-service/internal/app"
	"jsquiz-service/internal/domain"
)

// NewRouter mounts the REST endpoints and the websocket quiz endpoint.
func NewRouter(service *app.QuizService, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	api := &apiHandler{service: service}
	ws := NewWSHandler(service)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/themes", api.listThemes)
	r.Post("/login", api.login)
	r.Get("/profiles/{username}", api.getProfile)
	r.Get("/ws", ws.ServeWS)
	return r
}

type apiHandler struct {
	service *app.QuizService
}

type loginRequest struct {
	Username string `json:"username"`
}

func (h *apiHandler) listThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.service.Themes(r.Context())
	if err != nil {
		log.Printf("list themes: %v", err)
		writeError(w, http.StatusInternalServerError, "could not list themes")
		return
	}
	if themes == nil {
		themes = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"themes": themes})
}

func (h *apiHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid login payload")
		return
	}
	profile, err := h.service.Login(r.Context(), req.Username)
	respondProfile(w, req.Username, profile, err)
}

func (h *apiHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	profile, err := h.service.Profile(r.Context(), username)
	respondProfile(w, username, profile, err)
}

func respondProfile(w http.ResponseWriter, username string, profile domain.Profile, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidUsername):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		log.Printf("load profile %q: %v", username, err)
		writeError(w, http.StatusInternalServerError, "could not load profile")
	default:
		writeJSON(w, http.StatusOK, profile)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}
