package handlers

import (
	"net/http"
	"strconv"

	"github.com/AnshRaj112/safeharbor-backend/internal/library"
	"github.com/AnshRaj112/safeharbor-backend/internal/models"
)

type questionsResponse struct {
	Success     bool               `json:"success"`
	Questions   []library.Question `json:"questions"`
	AnswerScale []string           `json:"answerScale"`
}

type checkInRequest struct {
	Answers map[string]int `json:"answers"`
}

type checkInResponse struct {
	Success         bool                     `json:"success"`
	Message         string                   `json:"message"`
	CheckIn         *models.CheckIn          `json:"checkIn,omitempty"`
	Recommendations []library.Recommendation `json:"recommendations,omitempty"`
}

type checkInsResponse struct {
	Success  bool             `json:"success"`
	CheckIns []models.CheckIn `json:"checkIns"`
}

// CheckInQuestions handles GET /api/checkins/questions.
func (h *Handler) CheckInQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, questionsResponse{
		Success:     true,
		Questions:   h.Library.Questions,
		AnswerScale: h.Library.AnswerScale,
	})
}

// SubmitCheckIn handles POST /api/checkins and returns the scored result.
func (h *Handler) SubmitCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	checkIn, err := h.CheckIns.Submit(ctx, userID(r), req.Answers)
	if err != nil {
		writeServiceError(w, r, err, "Failed to save check-in")
		return
	}
	writeJSON(w, http.StatusCreated, checkInResponse{
		Success:         true,
		Message:         "Thank you for checking in",
		CheckIn:         checkIn,
		Recommendations: h.Library.Recommendations,
	})
}

func (h *Handler) ListCheckIns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)

	ctx, cancel := requestContext(r)
	defer cancel()

	checkIns, err := h.CheckIns.List(ctx, userID(r), limit)
	if err != nil {
		writeServiceError(w, r, err, "Failed to load check-ins")
		return
	}
	if checkIns == nil {
		checkIns = []models.CheckIn{}
	}
	writeJSON(w, http.StatusOK, checkInsResponse{Success: true, CheckIns: checkIns})
}
