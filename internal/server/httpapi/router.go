// Package httpapi is the backend's REST and WebSocket surface: a chi router
// with JSON envelopes, bearer authentication, request logging, Prometheus
// metrics and the push notification hub.
package httpapi

import (
	"context"
	"net/http"

	domain "github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/contract"
	"github.com/fitiq/fitiq/internal/logging"
	"github.com/fitiq/fitiq/internal/server/models"
	"github.com/fitiq/fitiq/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

type UserService interface {
	Authenticator
	Register(ctx context.Context, email, password string) (*services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

type ProfileService interface {
	Get(ctx context.Context, userID string) (*models.Profile, *models.Physical, error)
	Update(ctx context.Context, userID string, u services.ProfileUpdate) (*models.Profile, *models.Physical, error)
	UpdatePhysical(ctx context.Context, userID string, incoming domain.PhysicalProfile) (*models.Physical, error)
}

type ProgressService interface {
	Create(ctx context.Context, e *models.ProgressEntry) (*models.ProgressEntry, bool, error)
	List(ctx context.Context, userID string, f models.ListFilter) ([]*models.ProgressEntry, error)
}

type MoodService interface {
	Create(ctx context.Context, e *models.MoodEntry) (*models.MoodEntry, bool, error)
	List(ctx context.Context, userID string, f models.ListFilter) ([]*models.MoodEntry, error)
}

type MealLogService interface {
	Submit(ctx context.Context, m *models.MealLog) (*models.MealLog, error)
	Get(ctx context.Context, userID, id string) (*models.MealLog, error)
	List(ctx context.Context, userID string, limit int) ([]*models.MealLog, error)
}

type Handler struct {
	Users    UserService
	Profiles ProfileService
	Progress ProgressService
	Mood     MoodService
	MealLogs MealLogService
	Hub      *Hub
	Metrics  *Metrics
	Logger   logging.Logger

	upgrader websocket.Upgrader
}

// Routes builds the router. /metrics is served outside the API prefix and
// without authentication.
func (h *Handler) Routes() http.Handler {
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// native clients send no Origin; browsers authenticate by token
		CheckOrigin: func(*http.Request) bool { return true },
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.Metrics.Instrument)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, contract.CodeNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, contract.CodeMethodNotAllowed, "method not allowed")
	})

	r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

	r.Route(common.APIPrefix, func(r chi.Router) {
		r.Get("/health", h.health)

		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)
		r.Post("/auth/refresh", h.refresh)
		r.Post("/auth/logout", h.logout)

		r.With(requireAuth(h.Users, true)).Get("/ws", h.notifications)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(h.Users, false))

			r.Get("/users/me", h.getProfile)
			r.Put("/users/me", h.updateProfile)
			r.Patch("/users/me/physical", h.updatePhysical)

			r.Post("/progress", h.createProgress)
			r.Get("/progress", h.listProgress)
			r.Post("/mood", h.createMood)
			r.Get("/mood", h.listMood)

			r.Get("/meal-logs", h.listMealLogs)
			r.Post("/meal-logs/natural", h.submitMealLog)
			r.Get("/meal-logs/{id}", h.getMealLog)
		})
	})
	return r
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, code, msg)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.Logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	h.Hub.attach(conn, userID)
}
