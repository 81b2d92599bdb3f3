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

type ContestRepository interface {
	Create(ctx context.Context, contest *model.Contest, problems []model.ContestProblem) error
	FindByID(ctx context.Context, id string) (*model.Contest, error)
	List(ctx context.Context, limit, offset int) ([]model.Contest, error)
	ListByStatus(ctx context.Context, status model.ContestStatus) ([]model.Contest, error)
	// AdvanceStatus transitions the contest, reporting false when it
	// is no longer in the expected source status. Status never moves
	// backwards because every transition is conditional on `from`.
	AdvanceStatus(ctx context.Context, id string, from, to model.ContestStatus) (bool, error)
	Problems(ctx context.Context, contestID string) ([]model.ContestProblem, error)
	// AddParticipant reports false when the member already joined.
	AddParticipant(ctx context.Context, contestID, memberID string) (bool, error)
	FindParticipant(ctx context.Context, contestID, memberID string) (*model.ContestParticipant, error)
	// AwardSolve persists one verified solve atomically: the solve
	// row, the first-solve claim and the score increment commit or
	// roll back together, so a failed award leaves nothing behind and
	// can be retried. awarded reports false when the (member,
	// position) pair was already awarded; first reports whether this
	// member is the recorded first solver (the insert race is settled
	// by the (contest_id, position) primary key); total is the points
	// actually credited, bonus included.
	AwardSolve(ctx context.Context, contestID, memberID string, position, points, bonus int) (awarded, first bool, total int, err error)
	FirstSolves(ctx context.Context, contestID string) (map[int]string, error)
	Standings(ctx context.Context, contestID string) ([]model.ContestStanding, error)
}

type pgContestRepository struct {
	db *sql.DB
}

func NewPgContestRepository(db *sql.DB) ContestRepository {
	return &pgContestRepository{db: db}
}

func (r *pgContestRepository) Create(ctx context.Context, c *model.Contest, problems []model.ContestProblem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgContestRepository.Create begin: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	query := `INSERT INTO contests (id, name, slug, status, start_time, duration_minutes, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, query, c.ID, c.Name, c.Slug, c.Status, c.StartTime, c.DurationMinutes, c.CreatedBy); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // slug unique
			return fmt.Errorf("contest with this name already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgContestRepository.Create: %w", err)
	}

	pq := `INSERT INTO contest_problems (contest_id, position, judge_contest_id, problem_index, problem_name, problem_rating)
	       VALUES ($1, $2, $3, $4, $5, $6)`
	for _, p := range problems {
		if _, err := tx.ExecContext(ctx, pq, c.ID, p.Position, p.JudgeContestID, p.ProblemIndex, p.ProblemName, p.ProblemRating); err != nil {
			return fmt.Errorf("pgContestRepository.Create problem %d: %w", p.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgContestRepository.Create commit: %w", err)
	}
	return nil
}

func (r *pgContestRepository) FindByID(ctx context.Context, id string) (*model.Contest, error) {
	query := `SELECT id, name, slug, status, start_time, duration_minutes, created_by, created_at
	          FROM contests WHERE id = $1`
	c := &model.Contest{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Slug, &c.Status, &c.StartTime, &c.DurationMinutes, &c.CreatedBy, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.FindByID: %w", err)
	}
	return c, nil
}

func (r *pgContestRepository) List(ctx context.Context, limit, offset int) ([]model.Contest, error) {
	query := `SELECT id, name, slug, status, start_time, duration_minutes, created_by, created_at
	          FROM contests ORDER BY start_time DESC LIMIT $1 OFFSET $2`
	return r.scanContests(ctx, query, limit, offset)
}

func (r *pgContestRepository) ListByStatus(ctx context.Context, status model.ContestStatus) ([]model.Contest, error) {
	query := `SELECT id, name, slug, status, start_time, duration_minutes, created_by, created_at
	          FROM contests WHERE status = $1 ORDER BY start_time`
	return r.scanContests(ctx, query, status)
}

func (r *pgContestRepository) scanContests(ctx context.Context, query string, args ...interface{}) ([]model.Contest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.scanContests: %w", err)
	}
	defer rows.Close()

	var out []model.Contest
	for rows.Next() {
		var c model.Contest
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Status, &c.StartTime, &c.DurationMinutes, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgContestRepository.scanContests scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *pgContestRepository) AdvanceStatus(ctx context.Context, id string, from, to model.ContestStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contests SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return false, fmt.Errorf("pgContestRepository.AdvanceStatus: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *pgContestRepository) Problems(ctx context.Context, contestID string) ([]model.ContestProblem, error) {
	query := `SELECT contest_id, position, judge_contest_id, problem_index, problem_name, problem_rating
	          FROM contest_problems WHERE contest_id = $1 ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.Problems: %w", err)
	}
	defer rows.Close()

	var out []model.ContestProblem
	for rows.Next() {
		var p model.ContestProblem
		if err := rows.Scan(&p.ContestID, &p.Position, &p.JudgeContestID, &p.ProblemIndex, &p.ProblemName, &p.ProblemRating); err != nil {
			return nil, fmt.Errorf("pgContestRepository.Problems scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pgContestRepository) AddParticipant(ctx context.Context, contestID, memberID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO contest_participants (contest_id, member_id) VALUES ($1, $2)
		 ON CONFLICT (contest_id, member_id) DO NOTHING`, contestID, memberID)
	if err != nil {
		return false, fmt.Errorf("pgContestRepository.AddParticipant: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *pgContestRepository) FindParticipant(ctx context.Context, contestID, memberID string) (*model.ContestParticipant, error) {
	query := `SELECT contest_id, member_id, score, joined_at FROM contest_participants
	          WHERE contest_id = $1 AND member_id = $2`
	p := &model.ContestParticipant{}
	err := r.db.QueryRowContext(ctx, query, contestID, memberID).Scan(&p.ContestID, &p.MemberID, &p.Score, &p.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.FindParticipant: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT position FROM contest_solves WHERE contest_id = $1 AND member_id = $2 ORDER BY position`,
		contestID, memberID)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.FindParticipant solves: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pos int
		if err := rows.Scan(&pos); err != nil {
			return nil, fmt.Errorf("pgContestRepository.FindParticipant solves scan: %w", err)
		}
		p.SolvedPositions = append(p.SolvedPositions, pos)
	}
	return p, rows.Err()
}

func (r *pgContestRepository) AwardSolve(ctx context.Context, contestID, memberID string, position, points, bonus int) (bool, bool, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, false, 0, fmt.Errorf("pgContestRepository.AwardSolve begin: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	res, err := tx.ExecContext(ctx,
		`INSERT INTO contest_solves (contest_id, member_id, position) VALUES ($1, $2, $3)
		 ON CONFLICT (contest_id, member_id, position) DO NOTHING`, contestID, memberID, position)
	if err != nil {
		return false, false, 0, fmt.Errorf("pgContestRepository.AwardSolve solve: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, false, 0, nil
	}

	res, err = tx.ExecContext(ctx,
		`INSERT INTO contest_first_solves (contest_id, position, member_id) VALUES ($1, $2, $3)
		 ON CONFLICT (contest_id, position) DO NOTHING`, contestID, position, memberID)
	if err != nil {
		return false, false, 0, fmt.Errorf("pgContestRepository.AwardSolve first solve: %w", err)
	}
	n, _ := res.RowsAffected()
	first := n > 0

	total := points
	if first {
		total += bonus
	}
	res, err = tx.ExecContext(ctx,
		`UPDATE contest_participants SET score = score + $1 WHERE contest_id = $2 AND member_id = $3`,
		total, contestID, memberID)
	if err != nil {
		return false, false, 0, fmt.Errorf("pgContestRepository.AwardSolve score: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, false, 0, common.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return false, false, 0, fmt.Errorf("pgContestRepository.AwardSolve commit: %w", err)
	}
	return true, first, total, nil
}

func (r *pgContestRepository) FirstSolves(ctx context.Context, contestID string) (map[int]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT position, member_id FROM contest_first_solves WHERE contest_id = $1`, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.FirstSolves: %w", err)
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var pos int
		var memberID string
		if err := rows.Scan(&pos, &memberID); err != nil {
			return nil, fmt.Errorf("pgContestRepository.FirstSolves scan: %w", err)
		}
		out[pos] = memberID
	}
	return out, rows.Err()
}

func (r *pgContestRepository) Standings(ctx context.Context, contestID string) ([]model.ContestStanding, error) {
	query := `SELECT cp.member_id, m.username, cp.score,
	                 (SELECT COUNT(*) FROM contest_solves cs
	                  WHERE cs.contest_id = cp.contest_id AND cs.member_id = cp.member_id)
	          FROM contest_participants cp
	          JOIN members m ON m.id = cp.member_id
	          WHERE cp.contest_id = $1
	          ORDER BY cp.score DESC, cp.joined_at`
	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.Standings: %w", err)
	}
	defer rows.Close()

	var out []model.ContestStanding
	for rows.Next() {
		var s model.ContestStanding
		if err := rows.Scan(&s.MemberID, &s.Username, &s.Score, &s.Solved); err != nil {
			return nil, fmt.Errorf("pgContestRepository.Standings scan: %w", err)
		}
		s.Rank = len(out) + 1
		out = append(out, s)
	}
	return out, rows.Err()
}
