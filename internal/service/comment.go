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

// CommentService handles comments on solutions.
//
// It holds a SolutionRepository only to check that the parent exists
// before writing; comments are never looked up through it.
type CommentService struct {
	comments  repository.CommentRepository
	solutions repository.SolutionRepository
	logger    *slog.Logger
}

// NewCommentService creates a CommentService.
func NewCommentService(comments repository.CommentRepository, solutions repository.SolutionRepository, logger *slog.Logger) *CommentService {
	return &CommentService{
		comments:  comments,
		solutions: solutions,
		logger:    logger,
	}
}

// ListBySolution returns the comments of a solution, newest first. An
// unknown solution id yields an empty list.
func (s *CommentService) ListBySolution(ctx context.Context, solutionID string) ([]model.Comment, error) {
	comments, err := s.comments.ListComments(ctx, solutionID)
	if err != nil {
		s.logger.Error("failed to list comments",
			slog.String("solutionID", solutionID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	return comments, nil
}

// Create adds a comment to an existing solution.
func (s *CommentService) Create(ctx context.Context, caller auth.Identity, solutionID, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "text is required")
	}

	if _, err := s.solutions.GetSolution(ctx, solutionID); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		Text:       text,
		SolutionID: solutionID,
		PostedBy:   model.UserSummary{ID: caller.UserID, Username: caller.Username},
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		s.logger.Error("failed to create comment",
			slog.String("solutionID", solutionID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating comment: %w", callerGone(err))
	}

	s.logger.Info("comment created",
		slog.String("id", comment.ID),
		slog.String("solutionID", solutionID),
	)
	return comment, nil
}
