package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cparena/internal/common"
	"cparena/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type MemberRepository interface {
	Create(ctx context.Context, member *model.Member) error
	FindByEmail(ctx context.Context, email string) (*model.Member, error)
	FindByUsername(ctx context.Context, username string) (*model.Member, error)
	FindByID(ctx context.Context, id string) (*model.Member, error)
	UpdateRole(ctx context.Context, id, role string) error
	UsernamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

type pgMemberRepository struct {
	db *sql.DB
}

func NewPgMemberRepository(db *sql.DB) MemberRepository {
	return &pgMemberRepository{db: db}
}

func (r *pgMemberRepository) Create(ctx context.Context, member *model.Member) error {
	query := `INSERT INTO members (id, username, email, hashed_password, role)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, member.ID, member.Username, member.Email, member.HashedPassword, member.Role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("member with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgMemberRepository.Create: %w", err)
	}
	return nil
}

func (r *pgMemberRepository) FindByEmail(ctx context.Context, email string) (*model.Member, error) {
	return r.findBy(ctx, "email", email)
}

func (r *pgMemberRepository) FindByUsername(ctx context.Context, username string) (*model.Member, error) {
	return r.findBy(ctx, "username", username)
}

func (r *pgMemberRepository) FindByID(ctx context.Context, id string) (*model.Member, error) {
	return r.findBy(ctx, "id", id)
}

func (r *pgMemberRepository) findBy(ctx context.Context, column, value string) (*model.Member, error) {
	query := `SELECT id, username, email, hashed_password, role, created_at, updated_at
	          FROM members WHERE ` + column + ` = $1`
	member := &model.Member{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&member.ID, &member.Username, &member.Email, &member.HashedPassword, &member.Role, &member.CreatedAt, &member.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgMemberRepository.findBy %s: %w", column, err)
	}
	return member, nil
}

func (r *pgMemberRepository) UpdateRole(ctx context.Context, id, role string) error {
	query := `UPDATE members SET role = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, role, id)
	if err != nil {
		return fmt.Errorf("pgMemberRepository.UpdateRole: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgMemberRepository) UsernamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	query := `SELECT id, username FROM members WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("pgMemberRepository.UsernamesByIDs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, fmt.Errorf("pgMemberRepository.UsernamesByIDs scan: %w", err)
		}
		names[id] = username
	}
	return names, rows.Err()
}
