package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"codecourt/internal/api/middleware"
	"codecourt/internal/app/service"
	"codecourt/internal/common"
)

type ContestHandler struct {
	contestService *service.ContestService
}

func NewContestHandler(cs *service.ContestService) *ContestHandler {
	return &ContestHandler{contestService: cs}
}

func (h *ContestHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/contests/{contestID}", h.getContest)
	r.Post("/interviews/session", h.startOrResumeInterview)
	r.Post("/contest-problem/increment", h.incrementSolved)
}

func (h *ContestHandler) getContest(w http.ResponseWriter, r *http.Request) {
	contestID := chi.URLParam(r, "contestID")
	view, err := h.contestService.Get(r.Context(), contestID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

func (h *ContestHandler) startOrResumeInterview(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req service.InterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	session, err := h.contestService.StartOrResumeInterview(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, session)
}

type incrementRequest struct {
	ContestID string `json:"contestId"`
	ProblemID string `json:"problemId"`
}

// incrementSolved is the client's accepted-notification. It is idempotent:
// only accepted submissions not yet counted bump the counter, so repeated
// notifications from multiple tabs land on zero.
func (h *ContestHandler) incrementSolved(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req incrementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	counted, err := h.contestService.RecordSolve(r.Context(), userID, req.ContestID, req.ProblemID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true, "counted": counted})
}
