package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"codecourt/internal/api/middleware"
	"codecourt/internal/app/service"
	"codecourt/internal/common"
)

type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(ps *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listProblems)
	r.Get("/{slug}", h.getProblem)
	r.Group(func(admin chi.Router) {
		admin.Use(middleware.Authenticator)
		admin.Use(middleware.AdminOnly)
		admin.Post("/", h.upsertProblem)
	})
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	problems, err := h.problemService.List(r.Context(), limit, offset)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"problems": problems})
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	problem, err := h.problemService.GetBySlug(r.Context(), slug)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) upsertProblem(w http.ResponseWriter, r *http.Request) {
	var req service.UpsertProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	problem, err := h.problemService.Upsert(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

// DefaultCodeHandler serves the partial boilerplate shown in the editor.
type DefaultCodeHandler struct {
	problemService *service.ProblemService
}

func NewDefaultCodeHandler(ps *service.ProblemService) *DefaultCodeHandler {
	return &DefaultCodeHandler{problemService: ps}
}

func (h *DefaultCodeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.getDefaultCode)
}

func (h *DefaultCodeHandler) getDefaultCode(w http.ResponseWriter, r *http.Request) {
	problemID := r.URL.Query().Get("problemId")
	languageID := r.URL.Query().Get("languageId")
	if problemID == "" || languageID == "" {
		common.RespondWithError(w, http.StatusBadRequest, "Missing problemId or languageId")
		return
	}

	code, err := h.problemService.GetDefaultCode(r.Context(), problemID, languageID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"code": code})
}
