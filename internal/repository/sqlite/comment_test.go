package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/problem-hub/internal/model"
)

func TestComments(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	p := createTestProblem(t, db, alice, "Pothole")
	s := createTestSolution(t, db, alice, p.ID)
	other := createTestSolution(t, db, alice, p.ID)
	ctx := context.Background()

	first := &model.Comment{Text: "good idea", SolutionID: s.ID, PostedBy: model.UserSummary{ID: bob.ID}}
	second := &model.Comment{Text: "agreed", SolutionID: s.ID, PostedBy: model.UserSummary{ID: alice.ID}}
	elsewhere := &model.Comment{Text: "unrelated", SolutionID: other.ID, PostedBy: model.UserSummary{ID: bob.ID}}
	for _, c := range []*model.Comment{first, second, elsewhere} {
		if err := db.CreateComment(ctx, c); err != nil {
			t.Fatalf("CreateComment() error = %v", err)
		}
		if c.ID == "" || c.CreatedAt.IsZero() {
			t.Fatalf("CreateComment() did not set ID/CreatedAt: %+v", c)
		}
	}

	got, err := db.ListComments(ctx, s.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("order = [%s %s], want newest first", got[0].ID, got[1].ID)
	}
	if got[0].PostedBy.Username != "alice" || got[1].PostedBy.Username != "bob" {
		t.Errorf("authors = [%s %s], want [alice bob]", got[0].PostedBy.Username, got[1].PostedBy.Username)
	}
}

func TestListComments_Empty(t *testing.T) {
	db := newTestDB(t)

	got, err := db.ListComments(context.Background(), "no-such-solution")
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListComments() = %#v, want empty non-nil slice", got)
	}
}
