package handler

import (
	"encoding/json"
	"net/http"

	"cparena/internal/api/middleware"
	"cparena/internal/app/service"
	"cparena/internal/common"

	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	authService   *service.AuthService
	policyService *service.PolicyService
}

func NewAuthHandler(authService *service.AuthService, policyService *service.PolicyService) *AuthHandler {
	return &AuthHandler{authService: authService, policyService: policyService}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/signup", h.signup)
	r.Post("/login", h.login)
}

// RegisterAdminRoutes mounts role administration under an
// authenticated router.
func (h *AuthHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/members/{memberID}/role", h.assignRole)
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	resp, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) assignRole(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetMemberIDFromContext(r.Context())
	callerRole, _ := middleware.GetRoleFromContext(r.Context())
	if err := h.policyService.Require(r.Context(), callerID, callerRole, service.CapRoleAdmin); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	if err := h.authService.AssignRole(r.Context(), chi.URLParam(r, "memberID"), req.Role); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "role updated"})
}
