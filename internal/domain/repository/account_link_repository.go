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

type AccountLinkRepository interface {
	// Upsert creates the link or replaces the member's existing handle.
	// A handle already owned by another member is a conflict; the
	// unique index on judge_handle is authoritative.
	Upsert(ctx context.Context, link *model.AccountLink) error
	FindByMemberID(ctx context.Context, memberID string) (*model.AccountLink, error)
	FindByHandle(ctx context.Context, handle string) (*model.AccountLink, error)
	Delete(ctx context.Context, memberID string) error
}

type pgAccountLinkRepository struct {
	db *sql.DB
}

func NewPgAccountLinkRepository(db *sql.DB) AccountLinkRepository {
	return &pgAccountLinkRepository{db: db}
}

func (r *pgAccountLinkRepository) Upsert(ctx context.Context, link *model.AccountLink) error {
	query := `INSERT INTO account_links (member_id, judge_handle)
	          VALUES ($1, $2)
	          ON CONFLICT (member_id) DO UPDATE
	          SET judge_handle = EXCLUDED.judge_handle, linked_at = CURRENT_TIMESTAMP`
	_, err := r.db.ExecContext(ctx, query, link.MemberID, link.JudgeHandle)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // judge_handle unique
			return fmt.Errorf("judge handle is already linked to another member: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgAccountLinkRepository.Upsert: %w", err)
	}
	return nil
}

func (r *pgAccountLinkRepository) FindByMemberID(ctx context.Context, memberID string) (*model.AccountLink, error) {
	return r.findBy(ctx, "member_id", memberID)
}

func (r *pgAccountLinkRepository) FindByHandle(ctx context.Context, handle string) (*model.AccountLink, error) {
	return r.findBy(ctx, "judge_handle", handle)
}

func (r *pgAccountLinkRepository) findBy(ctx context.Context, column, value string) (*model.AccountLink, error) {
	query := `SELECT member_id, judge_handle, linked_at FROM account_links WHERE ` + column + ` = $1`
	link := &model.AccountLink{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(&link.MemberID, &link.JudgeHandle, &link.LinkedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgAccountLinkRepository.findBy %s: %w", column, err)
	}
	return link, nil
}

func (r *pgAccountLinkRepository) Delete(ctx context.Context, memberID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM account_links WHERE member_id = $1`, memberID)
	if err != nil {
		return fmt.Errorf("pgAccountLinkRepository.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}
