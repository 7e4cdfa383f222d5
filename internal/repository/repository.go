// Package repository declares the storage contracts the services depend on.
// internal/repository/sqlite is the production implementation.
//
// Every read returns owners already denormalized into model.UserSummary.
// Lookups of a missing record return an apperror.ErrNotFound.
package repository

import (
	"context"
	"errors"

	"github.com/sakif/problem-hub/internal/model"
)

// ErrUnknownAuthor is returned by the Create* methods and ToggleUpvote when
// the acting user ID does not name a stored user.
var ErrUnknownAuthor = errors.New("author is not a stored user")

type UserRepository interface {
	// CreateUser fills in ID and CreatedAt. A duplicate username or email
	// yields apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UserExists reports whether any user has this email OR this username.
	UserExists(ctx context.Context, email, username string) (bool, error)
}

type ProblemRepository interface {
	// CreateProblem fills in ID and CreatedAt. PostedBy.ID must name a
	// stored user, else ErrUnknownAuthor.
	CreateProblem(ctx context.Context, problem *model.Problem) error
	GetProblem(ctx context.Context, id string) (*model.Problem, error)
	// ListProblems returns every problem, newest first.
	ListProblems(ctx context.Context) ([]model.Problem, error)
	// UpdateProblem overwrites the mutable fields (title, description,
	// location, image, status).
	UpdateProblem(ctx context.Context, problem *model.Problem) error
	DeleteProblem(ctx context.Context, id string) error
}

type SolutionRepository interface {
	CreateSolution(ctx context.Context, solution *model.Solution) error
	GetSolution(ctx context.Context, id string) (*model.Solution, error)
	// ListSolutions returns the solutions of one problem, newest first.
	ListSolutions(ctx context.Context, problemID string) ([]model.Solution, error)
	// ToggleUpvote adds userID to the solution's upvotes if absent and
	// removes it if present, atomically, and reports the resulting state.
	ToggleUpvote(ctx context.Context, solutionID, userID string) (model.UpvoteResult, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	// ListComments returns the comments of one solution, newest first.
	ListComments(ctx context.Context, solutionID string) ([]model.Comment, error)
}
