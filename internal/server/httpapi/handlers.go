package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/contract"
	"github.com/fitiq/fitiq/internal/server/models"
	"github.com/fitiq/fitiq/internal/server/services"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req contract.RegisterRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	pair, err := h.Users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, tokenResponse(pair))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req contract.LoginRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	pair, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tokenResponse(pair))
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req contract.RefreshRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.RefreshToken == "" {
		h.fail(w, r, fmt.Errorf("%w: refresh_token is required", common.ErrValidation))
		return
	}
	pair, err := h.Users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tokenResponse(pair))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req contract.LogoutRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Users.Logout(r.Context(), req.RefreshToken); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	p, ph, err := h.Profiles.Get(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, profileDTO(p, ph))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	var req contract.ProfileUpdateRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	dob, err := parseDate(req.DateOfBirth, "date_of_birth")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, ph, err := h.Profiles.Update(r.Context(), userID, services.ProfileUpdate{
		Name:                req.Name,
		Bio:                 req.Bio,
		PreferredUnitSystem: req.PreferredUnitSystem,
		LanguageCode:        req.LanguageCode,
		DateOfBirth:         dob,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, profileDTO(p, ph))
}

func (h *Handler) updatePhysical(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	var req contract.PhysicalDTO
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	incoming, err := physicalFromDTO(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ph, err := h.Profiles.UpdatePhysical(r.Context(), userID, incoming)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, physicalDTO(ph))
}

func (h *Handler) createProgress(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	var req contract.ProgressRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	e, created, err := h.Progress.Create(r.Context(), &models.ProgressEntry{
		UserID:   userID,
		ClientID: clientID(req.ClientID),
		Type:     req.Type,
		Quantity: req.Quantity,
		Date:     req.Date,
		Notes:    req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, createdStatus(created), contract.CreatedResponse{ID: e.ID})
}

func (h *Handler) listProgress(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	f, err := listFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.Progress.List(r.Context(), userID, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]contract.ProgressDTO, 0, len(list))
	for _, e := range list {
		out = append(out, progressDTO(e))
	}
	writeData(w, http.StatusOK, out)
}

func (h *Handler) createMood(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	var req contract.MoodRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	e, created, err := h.Mood.Create(r.Context(), &models.MoodEntry{
		UserID:   userID,
		ClientID: clientID(req.ClientID),
		Score:    req.Score,
		Emotions: req.Emotions,
		Date:     req.Date,
		Notes:    req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, createdStatus(created), contract.CreatedResponse{ID: e.ID})
}

func (h *Handler) listMood(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	f, err := listFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.Mood.List(r.Context(), userID, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]contract.MoodDTO, 0, len(list))
	for _, e := range list {
		out = append(out, moodDTO(e))
	}
	writeData(w, http.StatusOK, out)
}

func (h *Handler) submitMealLog(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	var req contract.MealLogRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	m, err := h.MealLogs.Submit(r.Context(), &models.MealLog{
		UserID:   userID,
		ClientID: clientID(req.ClientID),
		RawInput: req.RawInput,
		MealType: req.MealType,
		LoggedAt: req.LoggedAt,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusAccepted, contract.MealLogAccepted{ID: m.ID, Status: m.Status})
}

func (h *Handler) getMealLog(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	m, err := h.MealLogs.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, mealLogDTO(m))
}

func (h *Handler) listMealLogs(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	f, err := listFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.MealLogs.List(r.Context(), userID, f.Limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]contract.MealLogDTO, 0, len(list))
	for _, m := range list {
		out = append(out, mealLogDTO(m))
	}
	writeData(w, http.StatusOK, out)
}

// createdStatus answers a replayed create with 200 so clients can tell it
// apart, while both carry the same id.
func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}

// listFilter parses type, from, to and limit. Dates are either calendar days
// or RFC 3339 timestamps; a calendar-day "to" includes that whole day.
func listFilter(r *http.Request) (models.ListFilter, error) {
	q := r.URL.Query()
	f := models.ListFilter{Type: strings.TrimSpace(q.Get("type"))}

	var err error
	if f.From, err = queryTime(q.Get("from"), "from", false); err != nil {
		return f, err
	}
	if f.To, err = queryTime(q.Get("to"), "to", true); err != nil {
		return f, err
	}
	if s := q.Get("limit"); s != "" {
		if f.Limit, err = strconv.Atoi(s); err != nil || f.Limit < 0 {
			return f, fmt.Errorf("%w: limit must be a non-negative integer", common.ErrValidation)
		}
	}
	return f, nil
}

func queryTime(s, field string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(contract.DateLayout, s); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be a date or RFC 3339 timestamp", common.ErrValidation, field)
	}
	return t, nil
}
