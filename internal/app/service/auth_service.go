package service

import (
	"context"
	"errors"
	"fmt"

	"cparena/internal/common"
	"cparena/internal/common/security"
	"cparena/internal/domain/model"
	"cparena/internal/domain/repository"

	"github.com/google/uuid"
)

type AuthService struct {
	memberRepo repository.MemberRepository
}

func NewAuthService(memberRepo repository.MemberRepository) *AuthService {
	return &AuthService{memberRepo: memberRepo}
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	LoginField string `json:"login_field"` // Can be username or email
	Password   string `json:"password"`
}

type AuthResponse struct {
	Member *model.Member `json:"member"`
	Token  string        `json:"token"`
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, common.ErrBadRequest
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	member := &model.Member{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashedPassword,
		Role:           model.RoleMember, // Default role
	}

	if err := s.memberRepo.Create(ctx, member); err != nil {
		// Repo might return common.ErrConflict
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	token, err := security.GenerateToken(member.ID, member.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	member.HashedPassword = ""
	return &AuthResponse{Member: member, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.LoginField == "" || req.Password == "" {
		return nil, common.ErrBadRequest
	}

	// Try finding by email first, then by username
	member, err := s.memberRepo.FindByEmail(ctx, req.LoginField)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			member, err = s.memberRepo.FindByUsername(ctx, req.LoginField)
		}
	}

	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized // Generic message for security
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, member.HashedPassword) {
		return nil, common.ErrUnauthorized
	}

	token, err := security.GenerateToken(member.ID, member.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	member.HashedPassword = ""
	return &AuthResponse{Member: member, Token: token}, nil
}

// AssignRole promotes or demotes a member. Organizer-gated at the
// policy layer before this is called.
func (s *AuthService) AssignRole(ctx context.Context, memberID, role string) error {
	if role != model.RoleMember && role != model.RoleOrganizer {
		return fmt.Errorf("unknown role %q: %w", role, common.ErrValidation)
	}
	return s.memberRepo.UpdateRole(ctx, memberID, role)
}
