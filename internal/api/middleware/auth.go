package middleware

import (
	"context"
	"net/http"
	"strings"

	"cparena/internal/common"
	"cparena/internal/common/security"
	"cparena/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	MemberIDCtxKey contextKey = "memberID"
	RoleCtxKey     contextKey = "memberRole"
)

func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context()) // Extracts token from Authorization header

		if err != nil {
			if strings.Contains(err.Error(), "token not found") || token == nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			} else {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
			}
			return
		}

		if token == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		memberID, err := security.GetMemberIDFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}
		role, err := security.GetRoleFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), MemberIDCtxKey, memberID)
		ctx = context.WithValue(ctx, RoleCtxKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OrganizerOnly is a coarse pre-filter; the policy service remains
// the authority and re-checks the capability on every call.
func OrganizerOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := r.Context().Value(RoleCtxKey).(string)
		if !ok || role != model.RoleOrganizer {
			common.RespondWithError(w, http.StatusForbidden, "Organizer access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Helper to get member ID from context
func GetMemberIDFromContext(ctx context.Context) (string, bool) {
	memberID, ok := ctx.Value(MemberIDCtxKey).(string)
	return memberID, ok
}

// Helper to get member role from context
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleCtxKey).(string)
	return role, ok
}
