package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/problem-hub/internal/apperror"
	"github.com/sakif/problem-hub/internal/model"
	"github.com/sakif/problem-hub/internal/repository"
)

var _ repository.ProblemRepository = (*DB)(nil)

// selectProblem joins the owner so every read comes back with PostedBy
// resolved. A LEFT JOIN keeps problems whose owner row is gone.
const selectProblem = `
	SELECT p.id, p.title, p.description, p.location, p.image, p.status,
	       p.posted_by, COALESCE(u.username, ''), p.created_at
	FROM problems p
	LEFT JOIN users u ON u.id = p.posted_by`

// rowScanner is the Scan method shared by *sql.Row and *sql.Rows, so one
// scan function serves both single-row lookups and list iteration.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProblem(row rowScanner) (*model.Problem, error) {
	var p model.Problem
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Location, &p.Image, &p.Status,
		&p.PostedBy.ID, &p.PostedBy.Username, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProblem inserts a problem. Status defaults to open.
func (db *DB) CreateProblem(ctx context.Context, problem *model.Problem) error {
	problem.ID = xid.New().String()
	problem.CreatedAt = db.now()
	if problem.Status == "" {
		problem.Status = model.StatusOpen
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO problems (id, title, description, location, image, status, posted_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		problem.ID,
		problem.Title,
		problem.Description,
		problem.Location,
		problem.Image,
		problem.Status,
		problem.PostedBy.ID,
		problem.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("sqlite: creating problem for %s: %w", problem.PostedBy.ID, repository.ErrUnknownAuthor)
		}
		return fmt.Errorf("sqlite: creating problem: %w", err)
	}
	return nil
}

// GetProblem returns apperror.ErrNotFound when no row has this id.
func (db *DB) GetProblem(ctx context.Context, id string) (*model.Problem, error) {
	p, err := scanProblem(db.conn.QueryRowContext(ctx, selectProblem+` WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("problem", id)
		}
		return nil, fmt.Errorf("sqlite: getting problem %s: %w", id, err)
	}
	return p, nil
}

func (db *DB) ListProblems(ctx context.Context) ([]model.Problem, error) {
	rows, err := db.conn.QueryContext(ctx, selectProblem+` ORDER BY p.created_at DESC, p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing problems: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning problem row: %w", err)
		}
		problems = append(problems, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating problems: %w", err)
	}
	return problems, nil
}

// UpdateProblem writes back the mutable fields. Owner and creation time
// never change.
func (db *DB) UpdateProblem(ctx context.Context, problem *model.Problem) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE problems
		 SET title = ?, description = ?, location = ?, image = ?, status = ?
		 WHERE id = ?`,
		problem.Title,
		problem.Description,
		problem.Location,
		problem.Image,
		problem.Status,
		problem.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating problem %s: %w", problem.ID, err)
	}
	return expectOneRow(result, "problem", problem.ID)
}

func (db *DB) DeleteProblem(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM problems WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting problem %s: %w", id, err)
	}
	return expectOneRow(result, "problem", id)
}

// expectOneRow turns "0 rows affected" into a NotFound.
func expectOneRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
