package handler

import (
	"encoding/json"
	"net/http"

	"cparena/internal/api/middleware"
	"cparena/internal/app/service"
	"cparena/internal/common"

	"github.com/go-chi/chi/v5"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.getLink)
	r.Post("/link", h.link)
	r.Delete("/link", h.unlink)
}

func (h *AccountHandler) link(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing member context")
		return
	}

	var req service.LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	link, err := h.accountService.Link(r.Context(), memberID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, link)
}

func (h *AccountHandler) unlink(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing member context")
		return
	}
	if err := h.accountService.Unlink(r.Context(), memberID); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "unlinked"})
}

func (h *AccountHandler) getLink(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing member context")
		return
	}
	link, err := h.accountService.Get(r.Context(), memberID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, link)
}
