package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/problem-hub/internal/apperror"
	"github.com/sakif/problem-hub/internal/auth"
	"github.com/sakif/problem-hub/internal/model"
	"github.com/sakif/problem-hub/internal/repository"
)

// SolutionService handles solutions and their upvotes.
type SolutionService struct {
	solutions repository.SolutionRepository
	problems  repository.ProblemRepository
	logger    *slog.Logger
}

// NewSolutionService creates a SolutionService. problems is used for the
// parent existence check in Create.
func NewSolutionService(solutions repository.SolutionRepository, problems repository.ProblemRepository, logger *slog.Logger) *SolutionService {
	return &SolutionService{
		solutions: solutions,
		problems:  problems,
		logger:    logger,
	}
}

// ListByProblem returns the solutions of a problem, newest first. An
// unknown problem id yields an empty list.
func (s *SolutionService) ListByProblem(ctx context.Context, problemID string) ([]model.Solution, error) {
	solutions, err := s.solutions.ListSolutions(ctx, problemID)
	if err != nil {
		s.logger.Error("failed to list solutions",
			slog.String("problemID", problemID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing solutions: %w", err)
	}
	return solutions, nil
}

// Create adds a solution to an existing problem.
func (s *SolutionService) Create(ctx context.Context, caller auth.Identity, problemID, description string) (*model.Solution, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperror.ValidationFailed("description", "description is required")
	}

	if _, err := s.problems.GetProblem(ctx, problemID); err != nil {
		return nil, err
	}

	solution := &model.Solution{
		Description: description,
		ProblemID:   problemID,
		PostedBy:    model.UserSummary{ID: caller.UserID, Username: caller.Username},
	}
	if err := s.solutions.CreateSolution(ctx, solution); err != nil {
		s.logger.Error("failed to create solution",
			slog.String("problemID", problemID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating solution: %w", callerGone(err))
	}

	s.logger.Info("solution created",
		slog.String("id", solution.ID),
		slog.String("problemID", problemID),
		slog.String("userID", caller.UserID),
	)
	return solution, nil
}

// ToggleUpvote adds the caller's upvote if absent and removes it if
// present. Two toggles by the same user cancel out.
//
// The read-modify-write happens entirely inside the repository (one
// transaction in sqlite). The service must not split it into a separate
// "has the user upvoted?" read followed by a write.
func (s *SolutionService) ToggleUpvote(ctx context.Context, caller auth.Identity, solutionID string) (model.UpvoteResult, error) {
	result, err := s.solutions.ToggleUpvote(ctx, solutionID, caller.UserID)
	if err != nil {
		return model.UpvoteResult{}, callerGone(err)
	}

	s.logger.Debug("upvote toggled",
		slog.String("solutionID", solutionID),
		slog.String("userID", caller.UserID),
		slog.Bool("hasUpvoted", result.HasUpvoted),
	)
	return result, nil
}
