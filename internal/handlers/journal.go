package handlers

import (
	"net/http"
	"strconv"

	"github.com/AnshRaj112/safeharbor-backend/internal/models"
	"github.com/AnshRaj112/safeharbor-backend/internal/services"
)

type createJournalRequest struct {
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	Mood     string `json:"mood"`
	ImageURL string `json:"imageUrl"`
}

type journalResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Journal *models.JournalEntry `json:"journal,omitempty"`
}

type journalsResponse struct {
	Success  bool                  `json:"success"`
	Journals []models.JournalEntry `json:"journals"`
	Total    int64                 `json:"total"`
}

// CreateJournal handles POST /api/journals. The owner always comes from the token.
func (h *Handler) CreateJournal(w http.ResponseWriter, r *http.Request) {
	var req createJournalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	entry, err := h.Journals.Create(ctx, userID(r), services.JournalInput{
		Kind:     models.JournalKind(req.Kind),
		Text:     req.Text,
		Mood:     req.Mood,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to create journal entry")
		return
	}
	writeJSON(w, http.StatusCreated, journalResponse{Success: true, Message: "Journal created successfully", Journal: entry})
}

// ListJournals handles GET /api/journals?kind=&limit=&skip=.
func (h *Handler) ListJournals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.ParseInt(q.Get("limit"), 10, 64)
	skip, _ := strconv.ParseInt(q.Get("skip"), 10, 64)

	kind := models.JournalKind(q.Get("kind"))
	if kind != "" && kind != models.JournalKindMood && kind != models.JournalKindCBT {
		writeError(w, http.StatusBadRequest, "Kind must be mood or cbt")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	entries, total, err := h.Journals.List(ctx, userID(r), kind, limit, skip)
	if err != nil {
		writeServiceError(w, r, err, "Failed to load journals")
		return
	}
	if entries == nil {
		entries = []models.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, journalsResponse{Success: true, Journals: entries, Total: total})
}
