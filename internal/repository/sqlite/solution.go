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

var _ repository.SolutionRepository = (*DB)(nil)

const selectSolution = `
	SELECT s.id, s.description, s.problem_id, s.posted_by, COALESCE(u.username, ''), s.created_at
	FROM solutions s
	LEFT JOIN users u ON u.id = s.posted_by`

func scanSolution(row rowScanner) (*model.Solution, error) {
	var s model.Solution
	err := row.Scan(&s.ID, &s.Description, &s.ProblemID, &s.PostedBy.ID, &s.PostedBy.Username, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Upvotes = []string{}
	return &s, nil
}

func (db *DB) CreateSolution(ctx context.Context, solution *model.Solution) error {
	solution.ID = xid.New().String()
	solution.CreatedAt = db.now()
	solution.Upvotes = []string{}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO solutions (id, description, problem_id, posted_by, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		solution.ID,
		solution.Description,
		solution.ProblemID,
		solution.PostedBy.ID,
		solution.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("sqlite: creating solution for %s: %w", solution.PostedBy.ID, repository.ErrUnknownAuthor)
		}
		return fmt.Errorf("sqlite: creating solution: %w", err)
	}
	return nil
}

func (db *DB) GetSolution(ctx context.Context, id string) (*model.Solution, error) {
	s, err := scanSolution(db.conn.QueryRowContext(ctx, selectSolution+` WHERE s.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("solution", id)
		}
		return nil, fmt.Errorf("sqlite: getting solution %s: %w", id, err)
	}

	upvotes, err := db.upvotes(ctx,
		`SELECT solution_id, user_id FROM upvotes WHERE solution_id = ? ORDER BY created_at, user_id`, id)
	if err != nil {
		return nil, err
	}
	if ids, ok := upvotes[id]; ok {
		s.Upvotes = ids
	}
	return s, nil
}

func (db *DB) ListSolutions(ctx context.Context, problemID string) ([]model.Solution, error) {
	rows, err := db.conn.QueryContext(ctx,
		selectSolution+` WHERE s.problem_id = ? ORDER BY s.created_at DESC, s.id DESC`, problemID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing solutions for problem %s: %w", problemID, err)
	}

	solutions := []model.Solution{}
	for rows.Next() {
		s, err := scanSolution(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning solution row: %w", err)
		}
		solutions = append(solutions, *s)
	}
	// Close before the next query: an in-memory database has a single
	// connection and open rows would hold it.
	iterErr := rows.Err()
	rows.Close()
	if iterErr != nil {
		return nil, fmt.Errorf("sqlite: iterating solutions: %w", iterErr)
	}
	if len(solutions) == 0 {
		return solutions, nil
	}

	upvotes, err := db.upvotes(ctx,
		`SELECT v.solution_id, v.user_id
		 FROM upvotes v JOIN solutions s ON s.id = v.solution_id
		 WHERE s.problem_id = ?
		 ORDER BY v.created_at, v.user_id`, problemID)
	if err != nil {
		return nil, err
	}
	for i := range solutions {
		if ids, ok := upvotes[solutions[i].ID]; ok {
			solutions[i].Upvotes = ids
		}
	}
	return solutions, nil
}

// upvotes runs a (solution_id, user_id) query and groups it by solution.
func (db *DB) upvotes(ctx context.Context, query string, args ...any) (map[string][]string, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading upvotes: %w", err)
	}
	defer rows.Close()

	bySolution := make(map[string][]string)
	for rows.Next() {
		var solutionID, userID string
		if err := rows.Scan(&solutionID, &userID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning upvote row: %w", err)
		}
		bySolution[solutionID] = append(bySolution[solutionID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating upvotes: %w", err)
	}
	return bySolution, nil
}

// ToggleUpvote flips userID's membership in the solution's upvotes inside
// one transaction. The (solution_id, user_id) primary key keeps the set
// free of duplicates even if two toggles race.
//
// IMMEDIATE TRANSACTIONS:
// SQLite's default BEGIN is DEFERRED: it takes no lock until the first
// statement, and only a read lock for a SELECT. Two deferred transactions
// can both read "no upvote yet", then both try to upgrade to a write lock,
// and one fails with SQLITE_BUSY no matter how long busy_timeout is.
//
// The DSN in New sets _txlock=immediate, so BeginTx issues BEGIN IMMEDIATE
// and takes the write lock up front. A second toggle waits on busy_timeout
// until the first commits, then sees its result. The steps are:
//
//  1. confirm the solution exists (NotFound otherwise)
//  2. DELETE the (solution, user) row
//  3. if nothing was deleted, INSERT it: the user had not upvoted yet
//  4. COUNT the rows for the response
//
// The deferred Rollback is a no-op after a successful Commit.
func (db *DB) ToggleUpvote(ctx context.Context, solutionID, userID string) (model.UpvoteResult, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return model.UpvoteResult{}, fmt.Errorf("sqlite: beginning upvote transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM solutions WHERE id = ?)`, solutionID,
	).Scan(&exists); err != nil {
		return model.UpvoteResult{}, fmt.Errorf("sqlite: checking solution %s: %w", solutionID, err)
	}
	if !exists {
		return model.UpvoteResult{}, apperror.NotFound("solution", solutionID)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM upvotes WHERE solution_id = ? AND user_id = ?`, solutionID, userID)
	if err != nil {
		return model.UpvoteResult{}, fmt.Errorf("sqlite: removing upvote: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return model.UpvoteResult{}, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	hasUpvoted := false
	if removed == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO upvotes (solution_id, user_id, created_at) VALUES (?, ?, ?)`,
			solutionID, userID, db.now(),
		); err != nil {
			// The solution was checked above, so a foreign key failure here
			// can only be the user.
			if isForeignKeyViolation(err) {
				return model.UpvoteResult{}, fmt.Errorf("sqlite: adding upvote for %s: %w", userID, repository.ErrUnknownAuthor)
			}
			return model.UpvoteResult{}, fmt.Errorf("sqlite: adding upvote: %w", err)
		}
		hasUpvoted = true
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM upvotes WHERE solution_id = ?`, solutionID,
	).Scan(&count); err != nil {
		return model.UpvoteResult{}, fmt.Errorf("sqlite: counting upvotes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.UpvoteResult{}, fmt.Errorf("sqlite: committing upvote: %w", err)
	}
	return model.UpvoteResult{Upvotes: count, HasUpvoted: hasUpvoted}, nil
}
