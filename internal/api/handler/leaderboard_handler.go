package handler

import (
	"net/http"
	"strconv"

	"cparena/internal/app/service"
	"cparena/internal/common"
	"cparena/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type LeaderboardHandler struct {
	scoreService *service.ScoreService
}

func NewLeaderboardHandler(scoreService *service.ScoreService) *LeaderboardHandler {
	return &LeaderboardHandler{scoreService: scoreService}
}

func (h *LeaderboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.leaderboard)
}

func (h *LeaderboardHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	window, err := model.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.scoreService.Leaderboard(r.Context(), window, limit)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	type LeaderboardResponse struct {
		Window  model.Window             `json:"window"`
		Entries []model.LeaderboardEntry `json:"entries"`
	}
	common.RespondWithJSON(w, http.StatusOK, LeaderboardResponse{Window: window, Entries: entries})
}
