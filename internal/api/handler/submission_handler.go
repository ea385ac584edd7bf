package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"codecourt/internal/api/middleware"
	"codecourt/internal/app/poller"
	"codecourt/internal/app/service"
	"codecourt/internal/common"
	"codecourt/internal/domain/model"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
	verdictPoller     *poller.Poller
}

func NewSubmissionHandler(ss *service.SubmissionService, vp *poller.Poller) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss, verdictPoller: vp}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator) // All submission routes require auth
	r.Post("/", h.createSubmission)
	r.Get("/", h.getSubmission)
	r.Get("/{submissionID}/verdict", h.waitForVerdict)
	r.Get("/history/{problemID}", h.history)
}

func (h *SubmissionHandler) createSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req service.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	submission, err := h.submissionService.Submit(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	// Judging proceeds asynchronously; the id is all the client needs to poll.
	common.RespondWithJSON(w, http.StatusAccepted, map[string]string{"id": submission.ID})
}

func (h *SubmissionHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	submissionID := r.URL.Query().Get("id")
	if submissionID == "" {
		common.RespondWithError(w, http.StatusBadRequest, "Missing submission id")
		return
	}

	submission, testCases, err := h.submissionService.GetForUser(r.Context(), userID, submissionID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"submission": submission,
		"testCases":  testCases,
	})
}

// waitForVerdict long-polls server-side: reconcile, sleep, retry, until the
// verdict freezes or the budget runs out. Budget exhaustion is an explicit
// UNKNOWN, never a verdict.
func (h *SubmissionHandler) waitForVerdict(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	submissionID := chi.URLParam(r, "submissionID")
	// Owner check up front so a foreign id reads as not found immediately.
	if _, _, err := h.submissionService.GetForUser(r.Context(), userID, submissionID); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	status, err := h.verdictPoller.Wait(r.Context(), submissionID)
	if err != nil {
		if errors.Is(err, common.ErrVerdictUnknown) {
			common.RespondWithJSON(w, http.StatusAccepted, map[string]string{"status": "UNKNOWN"})
			return
		}
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]model.SubmissionStatus{"status": status})
}

func (h *SubmissionHandler) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	problemID := chi.URLParam(r, "problemID")
	submissions, err := h.submissionService.History(r.Context(), userID, problemID, 20)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"submissions": submissions})
}
