package server

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/query"
)

type roomsResponse struct {
	Rooms []query.RoomSummary `json:"rooms"`
}

type unreadResponse struct {
	UnreadCount int `json:"unreadCount"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Router builds the HTTP surface: the WebSocket relay endpoint and the read-only query API.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.cfg.AllowedOrigins(),
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/ws", a.handleWS)

	r.Route("/api", func(api chi.Router) {
		api.Get("/rooms/{user}", a.handleListRooms)
		api.Get("/unread/{user}", a.handleUnreadTotal)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

// GET /api/rooms/{user}
func (a *App) handleListRooms(w http.ResponseWriter, r *http.Request) {
	user := strings.TrimSpace(chi.URLParam(r, "user"))
	if user == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user required"})
		return
	}
	writeJSON(w, http.StatusOK, roomsResponse{Rooms: a.queries.ListRooms(chat.UserID(user))})
}

// GET /api/unread/{user}
func (a *App) handleUnreadTotal(w http.ResponseWriter, r *http.Request) {
	user := strings.TrimSpace(chi.URLParam(r, "user"))
	if user == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user required"})
		return
	}
	writeJSON(w, http.StatusOK, unreadResponse{UnreadCount: a.queries.UnreadTotal(chat.UserID(user))})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		a.log.Debug("http request",
			"req_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}

func (a *App) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := a.cfg.AllowedOrigins()
	return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
}
