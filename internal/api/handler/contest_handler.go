package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"cparena/internal/api/middleware"
	"cparena/internal/app/service"
	"cparena/internal/common"

	"github.com/go-chi/chi/v5"
)

type ContestHandler struct {
	contestService *service.ContestService
}

func NewContestHandler(contestService *service.ContestService) *ContestHandler {
	return &ContestHandler{contestService: contestService}
}

func (h *ContestHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{contestID}", h.get)
	r.Get("/{contestID}/leaderboard", h.standings)
	r.Post("/{contestID}/join", h.join)
	r.Post("/{contestID}/solve", h.checkSolved)

	r.Group(func(organizer chi.Router) {
		organizer.Use(middleware.OrganizerOnly)
		organizer.Post("/builder", h.startBuilder)
		organizer.Patch("/builder/{token}", h.updateBuilder)
		organizer.Post("/builder/{token}/problems", h.addBuilderProblem)
		organizer.Post("/builder/{token}/finalize", h.finalizeBuilder)
		organizer.Post("/{contestID}/start", h.start)
		organizer.Post("/{contestID}/end", h.end)
	})
}

func (h *ContestHandler) startBuilder(w http.ResponseWriter, r *http.Request) {
	memberID, role, ok := callerFromContext(w, r)
	if !ok {
		return
	}
	builder, err := h.contestService.StartBuilder(r.Context(), memberID, role)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, builder)
}

func (h *ContestHandler) updateBuilder(w http.ResponseWriter, r *http.Request) {
	memberID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	var req service.UpdateBuilderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	builder, err := h.contestService.UpdateBuilder(r.Context(), chi.URLParam(r, "token"), memberID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, builder)
}

func (h *ContestHandler) addBuilderProblem(w http.ResponseWriter, r *http.Request) {
	memberID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	var spec service.ProblemSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	builder, err := h.contestService.AddBuilderProblem(r.Context(), chi.URLParam(r, "token"), memberID, spec)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, builder)
}

func (h *ContestHandler) finalizeBuilder(w http.ResponseWriter, r *http.Request) {
	memberID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	contest, err := h.contestService.FinalizeBuilder(r.Context(), chi.URLParam(r, "token"), memberID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, contest)
}

func (h *ContestHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	contests, err := h.contestService.List(r.Context(), limit, offset)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contests)
}

func (h *ContestHandler) get(w http.ResponseWriter, r *http.Request) {
	view, err := h.contestService.Get(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

func (h *ContestHandler) standings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.contestService.Standings(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, standings)
}

func (h *ContestHandler) join(w http.ResponseWriter, r *http.Request) {
	memberID, role, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	result, err := h.contestService.Join(r.Context(), chi.URLParam(r, "contestID"), memberID, role)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	if result.AlreadyJoined {
		common.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "already joined"})
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, map[string]string{"status": "joined"})
}

func (h *ContestHandler) checkSolved(w http.ResponseWriter, r *http.Request) {
	memberID, _, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	var req struct {
		Position int `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	result, err := h.contestService.CheckSolved(r.Context(), chi.URLParam(r, "contestID"), memberID, req.Position)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *ContestHandler) start(w http.ResponseWriter, r *http.Request) {
	memberID, role, ok := callerFromContext(w, r)
	if !ok {
		return
	}
	if err := h.contestService.Start(r.Context(), chi.URLParam(r, "contestID"), memberID, role); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (h *ContestHandler) end(w http.ResponseWriter, r *http.Request) {
	memberID, role, ok := callerFromContext(w, r)
	if !ok {
		return
	}
	if err := h.contestService.End(r.Context(), chi.URLParam(r, "contestID"), memberID, role); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// callerFromContext pulls the authenticated caller out of the request
// context, writing the 401 itself when missing.
func callerFromContext(w http.ResponseWriter, r *http.Request) (memberID, role string, ok bool) {
	memberID, ok = middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing member context")
		return "", "", false
	}
	role, _ = middleware.GetRoleFromContext(r.Context())
	return memberID, role, true
}
