package handler

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"codecourt/internal/app/service"
	"codecourt/internal/common"
	"codecourt/internal/platform/judge"
)

// CallbackHandler receives the judge's per-token push notifications. The
// path is best-effort: notifications may be lost, duplicated or reordered,
// and client polling remains the authoritative reconciliation driver.
type CallbackHandler struct {
	submissionService *service.SubmissionService
}

func NewCallbackHandler(ss *service.SubmissionService) *CallbackHandler {
	return &CallbackHandler{submissionService: ss}
}

func (h *CallbackHandler) RegisterRoutes(r chi.Router) {
	// Judge0 PUTs the submission resource to the registered callback URL.
	r.Put("/judge", h.handleJudgeCallback)
}

type judgeCallbackPayload struct {
	Token  string `json:"token"`
	Status struct {
		ID int `json:"id"`
	} `json:"status"`
	Stdout *string `json:"stdout"`
	Time   *string `json:"time"`
	Memory *int    `json:"memory"`
}

func (h *CallbackHandler) handleJudgeCallback(w http.ResponseWriter, r *http.Request) {
	var payload judgeCallbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid callback payload")
		return
	}
	defer r.Body.Close()

	if payload.Token == "" {
		common.RespondWithError(w, http.StatusBadRequest, "Missing token")
		return
	}

	result := judge.TokenResult{
		Status:   judge.StatusFromJudgeID(payload.Status.ID),
		Stdout:   payload.Stdout,
		MemoryKb: payload.Memory,
	}
	if payload.Time != nil {
		if seconds, err := strconv.ParseFloat(*payload.Time, 64); err == nil {
			ms := int(math.Round(seconds * 1000))
			result.TimeMs = &ms
		}
	}

	if err := h.submissionService.ApplyCallback(r.Context(), payload.Token, result); err != nil {
		log.Printf("ERROR: judge callback for token %s: %v", payload.Token, err)
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "callback processed"})
}
