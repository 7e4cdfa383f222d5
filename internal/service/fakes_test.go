package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/sakif/problem-hub/internal/apperror"
	"github.com/sakif/problem-hub/internal/auth"
	"github.com/sakif/problem-hub/internal/model"
	"github.com/sakif/problem-hub/internal/repository"
)

// fakeStore is an in-memory implementation of every repository interface.
// It hands out copies so a service mutating a returned record cannot
// change what is "stored" without calling an update method.
type fakeStore struct {
	users     map[string]model.User
	problems  map[string]model.Problem
	solutions map[string]model.Solution
	comments  map[string]model.Comment
	seq       int

	// set to a non-nil error to simulate a database failure
	createProblemErr error
	updateProblemErr error
	deleteProblemErr error
}

var (
	_ repository.UserRepository     = (*fakeStore)(nil)
	_ repository.ProblemRepository  = (*fakeStore)(nil)
	_ repository.SolutionRepository = (*fakeStore)(nil)
	_ repository.CommentRepository  = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]model.User),
		problems:  make(map[string]model.Problem),
		solutions: make(map[string]model.Solution),
		comments:  make(map[string]model.Comment),
	}
}

// next returns a fresh id and a strictly increasing timestamp.
func (f *fakeStore) next(prefix string) (string, time.Time) {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq), time.Unix(1_700_000_000+int64(f.seq), 0).UTC()
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.Email == user.Email || u.Username == user.Username {
			return apperror.Conflict("user already exists")
		}
	}
	user.ID, user.CreatedAt = f.next("user")
	f.users[user.ID] = *user
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeStore) UserExists(_ context.Context, email, username string) (bool, error) {
	for _, u := range f.users {
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateProblem(_ context.Context, problem *model.Problem) error {
	if f.createProblemErr != nil {
		return f.createProblemErr
	}
	problem.ID, problem.CreatedAt = f.next("problem")
	if problem.Status == "" {
		problem.Status = model.StatusOpen
	}
	f.problems[problem.ID] = *problem
	return nil
}

func (f *fakeStore) GetProblem(_ context.Context, id string) (*model.Problem, error) {
	p, ok := f.problems[id]
	if !ok {
		return nil, apperror.NotFound("problem", id)
	}
	return &p, nil
}

func (f *fakeStore) ListProblems(context.Context) ([]model.Problem, error) {
	out := []model.Problem{}
	for _, p := range f.problems {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) UpdateProblem(_ context.Context, problem *model.Problem) error {
	if f.updateProblemErr != nil {
		return f.updateProblemErr
	}
	if _, ok := f.problems[problem.ID]; !ok {
		return apperror.NotFound("problem", problem.ID)
	}
	f.problems[problem.ID] = *problem
	return nil
}

func (f *fakeStore) DeleteProblem(_ context.Context, id string) error {
	if f.deleteProblemErr != nil {
		return f.deleteProblemErr
	}
	if _, ok := f.problems[id]; !ok {
		return apperror.NotFound("problem", id)
	}
	delete(f.problems, id)
	return nil
}

func (f *fakeStore) CreateSolution(_ context.Context, solution *model.Solution) error {
	solution.ID, solution.CreatedAt = f.next("solution")
	solution.Upvotes = []string{}
	f.solutions[solution.ID] = *solution
	return nil
}

func (f *fakeStore) GetSolution(_ context.Context, id string) (*model.Solution, error) {
	s, ok := f.solutions[id]
	if !ok {
		return nil, apperror.NotFound("solution", id)
	}
	s.Upvotes = append([]string{}, s.Upvotes...)
	return &s, nil
}

func (f *fakeStore) ListSolutions(_ context.Context, problemID string) ([]model.Solution, error) {
	out := []model.Solution{}
	for _, s := range f.solutions {
		if s.ProblemID == problemID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ToggleUpvote(_ context.Context, solutionID, userID string) (model.UpvoteResult, error) {
	s, ok := f.solutions[solutionID]
	if !ok {
		return model.UpvoteResult{}, apperror.NotFound("solution", solutionID)
	}

	kept := []string{}
	for _, id := range s.Upvotes {
		if id != userID {
			kept = append(kept, id)
		}
	}
	has := len(kept) == len(s.Upvotes)
	if has {
		kept = append(kept, userID)
	}
	s.Upvotes = kept
	f.solutions[solutionID] = s
	return model.UpvoteResult{Upvotes: len(kept), HasUpvoted: has}, nil
}

func (f *fakeStore) CreateComment(_ context.Context, comment *model.Comment) error {
	comment.ID, comment.CreatedAt = f.next("comment")
	f.comments[comment.ID] = *comment
	return nil
}

func (f *fakeStore) ListComments(_ context.Context, solutionID string) ([]model.Comment, error) {
	out := []model.Comment{}
	for _, c := range f.comments {
		if c.SolutionID == solutionID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// fakeAssets records every call so tests can assert exactly which
// references were uploaded and deleted.
type fakeAssets struct {
	uploads   int
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeAssets) Upload(_ context.Context, data []byte) (string, error) {
	if f.uploadErr != nil {
		return "", apperror.UploadFailed(f.uploadErr)
	}
	f.uploads++
	return fmt.Sprintf("https://assets.test/problem-hub/problems/obj-%d.jpg", f.uploads), nil
}

func (f *fakeAssets) Delete(_ context.Context, ref string) error {
	f.deleted = append(f.deleted, ref)
	return f.deleteErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	alice = auth.Identity{UserID: "user-alice", Username: "alice"}
	bob   = auth.Identity{UserID: "user-bob", Username: "bob"}
)
