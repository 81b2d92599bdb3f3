package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cparena/internal/common"
	"cparena/internal/domain/model"
)

type ChallengeRepository interface {
	Create(ctx context.Context, challenge *model.Challenge, participants []model.ChallengeParticipant) error
	FindByID(ctx context.Context, id string) (*model.Challenge, error)
	ListParticipants(ctx context.Context, challengeID string) ([]model.ChallengeParticipant, error)
	FindParticipant(ctx context.Context, challengeID, memberID string) (*model.ChallengeParticipant, error)
	// AdvanceStatus moves the challenge from one status to another,
	// reporting false when the precondition no longer holds.
	AdvanceStatus(ctx context.Context, id string, from, to model.ChallengeStatus, startedAt *time.Time) (bool, error)
	SetParticipantState(ctx context.Context, challengeID, memberID string, state model.ParticipantState) error
	// RecordSolve marks a verified solve and reports whether this
	// member is the challenge winner. The winner flag and the solve
	// rank are decided inside one statement so concurrent checks
	// cannot produce two winners.
	RecordSolve(ctx context.Context, challengeID, memberID string, score float64, finish time.Time) (winner bool, rank int, err error)
}

type pgChallengeRepository struct {
	db *sql.DB
}

func NewPgChallengeRepository(db *sql.DB) ChallengeRepository {
	return &pgChallengeRepository{db: db}
}

func (r *pgChallengeRepository) Create(ctx context.Context, c *model.Challenge, participants []model.ChallengeParticipant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.Create begin: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	query := `INSERT INTO challenges (id, judge_contest_id, problem_index, problem_name, problem_rating, status, proposed_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, query, c.ID, c.JudgeContestID, c.ProblemIndex, c.ProblemName, c.ProblemRating, c.Status, c.ProposedBy); err != nil {
		return fmt.Errorf("pgChallengeRepository.Create: %w", err)
	}

	pq := `INSERT INTO challenge_participants (challenge_id, member_id, state) VALUES ($1, $2, $3)`
	for _, p := range participants {
		if _, err := tx.ExecContext(ctx, pq, c.ID, p.MemberID, p.State); err != nil {
			return fmt.Errorf("pgChallengeRepository.Create participant %s: %w", p.MemberID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgChallengeRepository.Create commit: %w", err)
	}
	return nil
}

func (r *pgChallengeRepository) FindByID(ctx context.Context, id string) (*model.Challenge, error) {
	query := `SELECT id, judge_contest_id, problem_index, problem_name, problem_rating, status, proposed_by, started_at, created_at
	          FROM challenges WHERE id = $1`
	c := &model.Challenge{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.JudgeContestID, &c.ProblemIndex, &c.ProblemName, &c.ProblemRating,
		&c.Status, &c.ProposedBy, &c.StartedAt, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgChallengeRepository.FindByID: %w", err)
	}
	return c, nil
}

func (r *pgChallengeRepository) ListParticipants(ctx context.Context, challengeID string) ([]model.ChallengeParticipant, error) {
	query := `SELECT challenge_id, member_id, state, is_winner, score_awarded, finish_time, rank, joined_at
	          FROM challenge_participants WHERE challenge_id = $1 ORDER BY joined_at`
	rows, err := r.db.QueryContext(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.ListParticipants: %w", err)
	}
	defer rows.Close()

	var out []model.ChallengeParticipant
	for rows.Next() {
		var p model.ChallengeParticipant
		if err := rows.Scan(&p.ChallengeID, &p.MemberID, &p.State, &p.IsWinner, &p.ScoreAwarded, &p.FinishTime, &p.Rank, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("pgChallengeRepository.ListParticipants scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pgChallengeRepository) FindParticipant(ctx context.Context, challengeID, memberID string) (*model.ChallengeParticipant, error) {
	query := `SELECT challenge_id, member_id, state, is_winner, score_awarded, finish_time, rank, joined_at
	          FROM challenge_participants WHERE challenge_id = $1 AND member_id = $2`
	p := &model.ChallengeParticipant{}
	err := r.db.QueryRowContext(ctx, query, challengeID, memberID).Scan(
		&p.ChallengeID, &p.MemberID, &p.State, &p.IsWinner, &p.ScoreAwarded, &p.FinishTime, &p.Rank, &p.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgChallengeRepository.FindParticipant: %w", err)
	}
	return p, nil
}

func (r *pgChallengeRepository) AdvanceStatus(ctx context.Context, id string, from, to model.ChallengeStatus, startedAt *time.Time) (bool, error) {
	query := `UPDATE challenges SET status = $1, started_at = COALESCE($2, started_at)
	          WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, to, startedAt, id, from)
	if err != nil {
		return false, fmt.Errorf("pgChallengeRepository.AdvanceStatus: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *pgChallengeRepository) SetParticipantState(ctx context.Context, challengeID, memberID string, state model.ParticipantState) error {
	query := `UPDATE challenge_participants SET state = $1 WHERE challenge_id = $2 AND member_id = $3`
	res, err := r.db.ExecContext(ctx, query, state, challengeID, memberID)
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.SetParticipantState: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgChallengeRepository) RecordSolve(ctx context.Context, challengeID, memberID string, score float64, finish time.Time) (bool, int, error) {
	// First writer wins: the winner flag is computed against the
	// current winner set within the statement, and the partial unique
	// index challenge_single_winner backs it up under concurrency.
	query := `UPDATE challenge_participants cp
	          SET state = $1,
	              score_awarded = $2,
	              finish_time = $3,
	              rank = (SELECT COUNT(*) + 1 FROM challenge_participants s
	                      WHERE s.challenge_id = $4 AND s.state = $5),
	              is_winner = NOT EXISTS (SELECT 1 FROM challenge_participants w
	                                      WHERE w.challenge_id = $4 AND w.is_winner)
	          WHERE cp.challenge_id = $4 AND cp.member_id = $6 AND cp.state = $7
	          RETURNING cp.is_winner, cp.rank`
	var winner bool
	var rank int
	err := r.db.QueryRowContext(ctx, query,
		model.ParticipantSolved, score, finish, challengeID, model.ParticipantSolved,
		memberID, model.ParticipantAccepted,
	).Scan(&winner, &rank)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Already solved or surrendered, or never accepted.
			return false, 0, common.ErrConflict
		}
		return false, 0, fmt.Errorf("pgChallengeRepository.RecordSolve: %w", err)
	}
	return winner, rank, nil
}
