package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"codecourt/internal/api/middleware"
	"codecourt/internal/app/service"
	"codecourt/internal/common"
)

// ProctorHandler relays webcam frames between the browser and the external
// face-analysis service.
type ProctorHandler struct {
	proctorService *service.ProctorService
}

func NewProctorHandler(ps *service.ProctorService) *ProctorHandler {
	return &ProctorHandler{proctorService: ps}
}

func (h *ProctorHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/register-face", h.registerFace)
	r.Post("/session", h.startSession)
	r.Post("/frames", h.analyzeFrame)
	r.Delete("/session/{sessionID}", h.endSession)
	r.Get("/flag/{sessionID}", h.getFlag)
}

const maxFrameBytes = 4 << 20

func readFrame(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxFrameBytes); err != nil {
		return nil, common.Errorf("invalid multipart form: %w", common.ErrBadRequest)
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, common.Errorf("missing image part: %w", common.ErrBadRequest)
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, maxFrameBytes))
}

func (h *ProctorHandler) registerFace(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	frame, err := readFrame(r)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	if err := h.proctorService.RegisterFace(r.Context(), userID, frame); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "face registered"})
}

func (h *ProctorHandler) startSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	frame, err := readFrame(r)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	sessionID, err := h.proctorService.StartSession(r.Context(), userID, frame)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"session_id": sessionID})
}

func (h *ProctorHandler) analyzeFrame(w http.ResponseWriter, r *http.Request) {
	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		common.RespondWithError(w, http.StatusBadRequest, "Missing session_id")
		return
	}
	frame, err := readFrame(r)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	result, err := h.proctorService.AnalyzeFrame(r.Context(), sessionID, frame)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *ProctorHandler) endSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.proctorService.EndSession(r.Context(), sessionID); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "session ended"})
}

func (h *ProctorHandler) getFlag(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	flag, err := h.proctorService.GetFlag(r.Context(), sessionID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, flag)
}
