package handler

import (
	"encoding/json"
	"net/http"

	"cparena/internal/api/middleware"
	"cparena/internal/app/service"
	"cparena/internal/common"

	"github.com/go-chi/chi/v5"
)

type ChallengeHandler struct {
	challengeService *service.ChallengeService
}

func NewChallengeHandler(challengeService *service.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challengeService: challengeService}
}

func (h *ChallengeHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.propose)
	r.Get("/{challengeID}", h.get)
	r.Post("/{challengeID}/accept", h.accept)
	r.Post("/{challengeID}/reject", h.reject)
	r.Post("/{challengeID}/solve", h.checkSolve)
	r.Post("/{challengeID}/surrender", h.surrender)
}

func (h *ChallengeHandler) propose(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing member context")
		return
	}
	role, _ := middleware.GetRoleFromContext(r.Context())

	var req service.ProposeChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	result, err := h.challengeService.Propose(r.Context(), memberID, role, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, result)
}

func (h *ChallengeHandler) get(w http.ResponseWriter, r *http.Request) {
	view, err := h.challengeService.Get(r.Context(), chi.URLParam(r, "challengeID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

func (h *ChallengeHandler) accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, true)
}

func (h *ChallengeHandler) reject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, false)
}

func (h *ChallengeHandler) respond(w http.ResponseWriter, r *http.Request, accept bool) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing member context")
		return
	}

	challenge, err := h.challengeService.Respond(r.Context(), chi.URLParam(r, "challengeID"), memberID, accept)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, challenge)
}

func (h *ChallengeHandler) checkSolve(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing member context")
		return
	}

	result, err := h.challengeService.CheckSolve(r.Context(), chi.URLParam(r, "challengeID"), memberID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *ChallengeHandler) surrender(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing member context")
		return
	}

	completed, err := h.challengeService.Surrender(r.Context(), chi.URLParam(r, "challengeID"), memberID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]bool{"surrendered": true, "completed": completed})
}
