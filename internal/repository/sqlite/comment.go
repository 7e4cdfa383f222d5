package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/problem-hub/internal/model"
	"github.com/sakif/problem-hub/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// The assignment fails to compile if *DB stops satisfying
// repository.CommentRepository. Each repository file carries its own.
var _ repository.CommentRepository = (*DB)(nil)

// CreateComment inserts a comment. The store does not check that the
// solution exists; CommentService does that before calling here.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = db.now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, text, solution_id, posted_by, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		comment.ID,
		comment.Text,
		comment.SolutionID,
		comment.PostedBy.ID,
		comment.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("sqlite: creating comment for %s: %w", comment.PostedBy.ID, repository.ErrUnknownAuthor)
		}
		return fmt.Errorf("sqlite: creating comment: %w", err)
	}
	return nil
}

// ListComments returns the comments of one solution, newest first, with
// the author's username joined in. id DESC breaks ties between comments
// written in the same instant.
func (db *DB) ListComments(ctx context.Context, solutionID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT c.id, c.text, c.solution_id, c.posted_by, COALESCE(u.username, ''), c.created_at
		 FROM comments c
		 LEFT JOIN users u ON u.id = c.posted_by
		 WHERE c.solution_id = ?
		 ORDER BY c.created_at DESC, c.id DESC`, solutionID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for solution %s: %w", solutionID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.Text, &c.SolutionID, &c.PostedBy.ID, &c.PostedBy.Username, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}
