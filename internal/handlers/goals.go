package handlers

import (
	"net/http"

	"github.com/AnshRaj112/safeharbor-backend/internal/models"
	"github.com/go-chi/chi/v5"
)

type goalRequest struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

type goalResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Goal    *models.Goal `json:"goal,omitempty"`
}

type goalsResponse struct {
	Success bool          `json:"success"`
	Goals   []models.Goal `json:"goals"`
}

func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	goal, err := h.Goals.Create(ctx, userID(r), req.Title)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create goal")
		return
	}
	writeJSON(w, http.StatusCreated, goalResponse{Success: true, Message: "Goal created", Goal: goal})
}

func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	goals, err := h.Goals.List(ctx, userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to load goals")
		return
	}
	if goals == nil {
		goals = []models.Goal{}
	}
	writeJSON(w, http.StatusOK, goalsResponse{Success: true, Goals: goals})
}

// UpdateGoal handles PUT /api/goals/{id} with {"status": "active"|"completed"}.
func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	goal, err := h.Goals.UpdateStatus(ctx, userID(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update goal")
		return
	}
	writeJSON(w, http.StatusOK, goalResponse{Success: true, Message: "Goal updated", Goal: goal})
}

func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.Goals.Delete(ctx, userID(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err, "Failed to delete goal")
		return
	}
	writeJSON(w, http.StatusOK, goalResponse{Success: true, Message: "Goal deleted"})
}
