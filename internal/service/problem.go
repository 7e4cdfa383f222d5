// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, authorizes, orchestrates
//	Repository (Data layer)  → reads/writes the database
//
// Services take repository interfaces and an asset.Store, never concrete
// types, so tests run against in-memory fakes. Every failure comes back
// as an apperror (or wraps one); mapping to HTTP status codes is the
// handler's job.
//
// OWNED-RECORD LIFECYCLE:
// Mutations of a Problem run the same steps in order, and stop at the
// first failure:
//
//  1. Locate     (update/delete) fetch the record, NotFound if absent
//  2. Authorize  (update/delete) caller must be the owner, else Forbidden
//  3. Upload     (create/update, only when image bytes are attached)
//  4. Mutate     persist the record
//  5. Clean up   delete the asset the record no longer points at
//
// Uploading before the write means a stored record never references an
// image that failed to upload. If the write itself fails, the image that
// was just uploaded is deleted again so no orphan is left behind. Asset
// deletion is best-effort: failures are logged at Warn and never returned.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/problem-hub/internal/apperror"
	"github.com/sakif/problem-hub/internal/asset"
	"github.com/sakif/problem-hub/internal/auth"
	"github.com/sakif/problem-hub/internal/model"
	"github.com/sakif/problem-hub/internal/repository"
)

// ProblemService handles business logic for problems and their images.
type ProblemService struct {
	repo   repository.ProblemRepository
	assets asset.Store
	logger *slog.Logger
}

// NewProblemService creates a new ProblemService.
func NewProblemService(repo repository.ProblemRepository, assets asset.Store, logger *slog.Logger) *ProblemService {
	return &ProblemService{
		repo:   repo,
		assets: assets,
		logger: logger,
	}
}

// NewProblem is the input to Create. All three fields are required.
type NewProblem struct {
	Title       string
	Description string
	Location    string
}

// List returns every problem, newest first. Reads are public.
func (s *ProblemService) List(ctx context.Context) ([]model.Problem, error) {
	problems, err := s.repo.ListProblems(ctx)
	if err != nil {
		s.logger.Error("failed to list problems", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing problems: %w", err)
	}
	return problems, nil
}

// Get returns one problem, or apperror.ErrNotFound.
func (s *ProblemService) Get(ctx context.Context, id string) (*model.Problem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "problem ID is required")
	}
	return s.repo.GetProblem(ctx, id)
}

// Create stores a new open problem owned by caller. When image is
// non-empty it is uploaded first; a failed upload aborts with
// apperror.ErrUploadFailed and nothing is written.
func (s *ProblemService) Create(ctx context.Context, caller auth.Identity, input NewProblem, image []byte) (*model.Problem, error) {
	problem := &model.Problem{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
		Status:      model.StatusOpen,
		PostedBy:    model.UserSummary{ID: caller.UserID, Username: caller.Username},
	}

	switch {
	case problem.Title == "":
		return nil, apperror.ValidationFailed("title", "title is required")
	case problem.Description == "":
		return nil, apperror.ValidationFailed("description", "description is required")
	case problem.Location == "":
		return nil, apperror.ValidationFailed("location", "location is required")
	}

	if len(image) > 0 {
		ref, err := s.assets.Upload(ctx, image)
		if err != nil {
			s.logger.Error("problem image upload failed",
				slog.String("userID", caller.UserID),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("creating problem: %w", err)
		}
		problem.Image = ref
	}

	if err := s.repo.CreateProblem(ctx, problem); err != nil {
		s.logger.Error("failed to create problem",
			slog.String("userID", caller.UserID),
			slog.String("error", err.Error()),
		)
		s.removeAsset(ctx, problem.Image)
		return nil, fmt.Errorf("creating problem: %w", callerGone(err))
	}

	s.logger.Info("problem created",
		slog.String("id", problem.ID),
		slog.String("userID", caller.UserID),
	)

	return problem, nil
}

// Update applies patch to a problem owned by caller. Fields absent from
// the patch keep their stored values.
//
// When image is non-empty the new image is uploaded before the record is
// written, and the previous image is deleted only after the write has
// succeeded. A failed upload therefore leaves both the record and its old
// image exactly as they were.
func (s *ProblemService) Update(ctx context.Context, caller auth.Identity, id string, patch model.ProblemPatch, image []byte) (*model.Problem, error) {
	problem, err := s.locateOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil && !model.ValidStatus(*patch.Status) {
		return nil, apperror.ValidationFailed("status",
			fmt.Sprintf("status must be %q or %q", model.StatusOpen, model.StatusSolved))
	}

	oldImage := problem.Image
	newImage := ""
	if len(image) > 0 {
		newImage, err = s.assets.Upload(ctx, image)
		if err != nil {
			s.logger.Error("problem image upload failed",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("updating problem: %w", err)
		}
	}

	patch.Apply(problem)
	if newImage != "" {
		problem.Image = newImage
	}

	if err := s.repo.UpdateProblem(ctx, problem); err != nil {
		s.logger.Error("failed to update problem",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		s.removeAsset(ctx, newImage)
		return nil, fmt.Errorf("updating problem: %w", err)
	}

	if newImage != "" {
		s.removeAsset(ctx, oldImage)
	}

	s.logger.Info("problem updated",
		slog.String("id", problem.ID),
		slog.String("userID", caller.UserID),
	)

	return problem, nil
}

// Delete removes a problem owned by caller, then its image. Solutions and
// comments under it are left in place.
func (s *ProblemService) Delete(ctx context.Context, caller auth.Identity, id string) error {
	problem, err := s.locateOwned(ctx, caller, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteProblem(ctx, problem.ID); err != nil {
		s.logger.Error("failed to delete problem",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting problem: %w", err)
	}

	s.removeAsset(ctx, problem.Image)

	s.logger.Info("problem deleted",
		slog.String("id", problem.ID),
		slog.String("userID", caller.UserID),
	)
	return nil
}

// locateOwned fetches a problem and checks caller owns it. NotFound wins
// over Forbidden: a missing record is reported as missing to everyone.
func (s *ProblemService) locateOwned(ctx context.Context, caller auth.Identity, id string) (*model.Problem, error) {
	problem, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if problem.PostedBy.ID != caller.UserID {
		return nil, apperror.Forbidden("you can only modify your own problems")
	}
	return problem, nil
}

// removeAsset deletes ref from the asset store, if set. Errors are logged
// and dropped; callers never fail because of cleanup.
func (s *ProblemService) removeAsset(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.assets.Delete(ctx, ref); err != nil {
		s.logger.Warn("failed to delete problem image",
			slog.String("image", ref),
			slog.String("error", err.Error()),
		)
	}
}
