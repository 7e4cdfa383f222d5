package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/sakif/problem-hub/internal/apperror"
	"github.com/sakif/problem-hub/internal/model"
	"github.com/sakif/problem-hub/internal/repository"
)

func strPtr(s string) *string { return &s }

var pothole = NewProblem{Title: "Pothole", Description: "Deep one", Location: "Main St"}

func newTestProblemService() (*ProblemService, *fakeStore, *fakeAssets) {
	store := newFakeStore()
	assets := &fakeAssets{}
	return NewProblemService(store, assets, discardLogger()), store, assets
}

func TestProblemCreate_NoImage(t *testing.T) {
	svc, store, assets := newTestProblemService()

	p, err := svc.Create(context.Background(), alice, pothole, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if p.Status != model.StatusOpen {
		t.Errorf("Status = %q, want %q", p.Status, model.StatusOpen)
	}
	if p.PostedBy.Username != "alice" || p.PostedBy.ID != alice.UserID {
		t.Errorf("PostedBy = %+v, want alice", p.PostedBy)
	}
	if p.Image != "" {
		t.Errorf("Image = %q, want empty", p.Image)
	}
	if assets.uploads != 0 {
		t.Errorf("uploads = %d, want 0", assets.uploads)
	}
	if _, ok := store.problems[p.ID]; !ok {
		t.Error("problem not persisted")
	}
}

func TestProblemCreate_WithImage(t *testing.T) {
	svc, store, assets := newTestProblemService()

	p, err := svc.Create(context.Background(), alice, pothole, []byte("jpeg bytes"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if assets.uploads != 1 {
		t.Errorf("uploads = %d, want 1", assets.uploads)
	}
	if p.Image == "" || store.problems[p.ID].Image != p.Image {
		t.Errorf("stored Image = %q, returned %q", store.problems[p.ID].Image, p.Image)
	}
}

func TestProblemCreate_UploadFailureLeavesNoRecord(t *testing.T) {
	svc, store, assets := newTestProblemService()
	assets.uploadErr = errors.New("storage offline")

	_, err := svc.Create(context.Background(), alice, pothole, []byte("jpeg bytes"))
	if !errors.Is(err, apperror.ErrUploadFailed) {
		t.Fatalf("Create() error = %v, want ErrUploadFailed", err)
	}
	if len(store.problems) != 0 {
		t.Errorf("problems stored = %d, want 0", len(store.problems))
	}
}

func TestProblemCreate_WriteFailureRemovesUpload(t *testing.T) {
	svc, store, assets := newTestProblemService()
	store.createProblemErr = errors.New("disk full")

	if _, err := svc.Create(context.Background(), alice, pothole, []byte("jpeg bytes")); err == nil {
		t.Fatal("Create() should fail when the store does")
	}

	want := []string{"https://assets.test/problem-hub/problems/obj-1.jpg"}
	if !reflect.DeepEqual(assets.deleted, want) {
		t.Errorf("deleted = %v, want %v", assets.deleted, want)
	}
}

func TestProblemCreate_UnknownAuthorIsInvalidToken(t *testing.T) {
	svc, store, assets := newTestProblemService()
	store.createProblemErr = fmt.Errorf("sqlite: creating problem for %s: %w", alice.UserID, repository.ErrUnknownAuthor)

	_, err := svc.Create(context.Background(), alice, pothole, []byte("jpeg bytes"))
	if !errors.Is(err, apperror.ErrInvalidToken) {
		t.Fatalf("Create() error = %v, want ErrInvalidToken", err)
	}
	if len(assets.deleted) != 1 {
		t.Errorf("deleted = %v, want the fresh upload removed", assets.deleted)
	}
}

func TestProblemCreate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		input     NewProblem
		wantField string
	}{
		{"missing title", NewProblem{Description: "d", Location: "l"}, "title"},
		{"blank description", NewProblem{Title: "t", Description: "  ", Location: "l"}, "description"},
		{"missing location", NewProblem{Title: "t", Description: "d"}, "location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, assets := newTestProblemService()

			_, err := svc.Create(context.Background(), alice, tt.input, []byte("img"))

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || appErr.Field != tt.wantField {
				t.Fatalf("Create() error = %v, want validation on %q", err, tt.wantField)
			}
			if assets.uploads != 0 {
				t.Error("invalid input must not reach the asset store")
			}
		})
	}
}

func TestProblemUpdate_PartialFields(t *testing.T) {
	svc, store, _ := newTestProblemService()
	p, _ := svc.Create(context.Background(), alice, pothole, nil)

	updated, err := svc.Update(context.Background(), alice, p.ID, model.ProblemPatch{
		Status:   strPtr(model.StatusSolved),
		Location: strPtr(""),
	}, nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Status != model.StatusSolved {
		t.Errorf("Status = %q, want solved", updated.Status)
	}
	if updated.Location != "" {
		t.Errorf("Location = %q, want explicitly cleared", updated.Location)
	}
	if updated.Title != "Pothole" || updated.Description != "Deep one" {
		t.Errorf("absent fields changed: %+v", updated)
	}
	if store.problems[p.ID] != *updated {
		t.Errorf("stored = %+v, returned %+v", store.problems[p.ID], *updated)
	}
}

func TestProblemUpdate_ReplacesImage(t *testing.T) {
	svc, store, assets := newTestProblemService()
	p, _ := svc.Create(context.Background(), alice, pothole, []byte("old"))
	oldImage := p.Image

	updated, err := svc.Update(context.Background(), alice, p.ID, model.ProblemPatch{}, []byte("new"))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Image == oldImage || store.problems[p.ID].Image != updated.Image {
		t.Errorf("Image not replaced: old %q, new %q", oldImage, updated.Image)
	}
	if !reflect.DeepEqual(assets.deleted, []string{oldImage}) {
		t.Errorf("deleted = %v, want [%s]", assets.deleted, oldImage)
	}
}

func TestProblemUpdate_UploadFailureKeepsOldImage(t *testing.T) {
	svc, store, assets := newTestProblemService()
	p, _ := svc.Create(context.Background(), alice, pothole, []byte("old"))
	before := store.problems[p.ID]
	assets.uploadErr = errors.New("storage offline")

	_, err := svc.Update(context.Background(), alice, p.ID, model.ProblemPatch{Title: strPtr("changed")}, []byte("new"))
	if !errors.Is(err, apperror.ErrUploadFailed) {
		t.Fatalf("Update() error = %v, want ErrUploadFailed", err)
	}
	if store.problems[p.ID] != before {
		t.Errorf("record changed: %+v", store.problems[p.ID])
	}
	if len(assets.deleted) != 0 {
		t.Errorf("deleted = %v, want nothing", assets.deleted)
	}
}

func TestProblemUpdate_WriteFailureRemovesNewImage(t *testing.T) {
	svc, store, assets := newTestProblemService()
	p, _ := svc.Create(context.Background(), alice, pothole, []byte("old"))
	oldImage := p.Image
	store.updateProblemErr = errors.New("disk full")

	if _, err := svc.Update(context.Background(), alice, p.ID, model.ProblemPatch{}, []byte("new")); err == nil {
		t.Fatal("Update() should fail when the store does")
	}

	if len(assets.deleted) != 1 || assets.deleted[0] == oldImage {
		t.Errorf("deleted = %v, want only the new upload", assets.deleted)
	}
	if store.problems[p.ID].Image != oldImage {
		t.Errorf("stored Image = %q, want %q", store.problems[p.ID].Image, oldImage)
	}
}

func TestProblemUpdate_NonOwnerLeavesRecordUnchanged(t *testing.T) {
	svc, store, assets := newTestProblemService()
	p, _ := svc.Create(context.Background(), alice, pothole, []byte("img"))
	before := store.problems[p.ID]

	_, err := svc.Update(context.Background(), bob, p.ID, model.ProblemPatch{Title: strPtr("hijacked")}, []byte("new"))
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Update() error = %v, want ErrForbidden", err)
	}
	if store.problems[p.ID] != before {
		t.Errorf("record changed: %+v", store.problems[p.ID])
	}
	if assets.uploads != 1 || len(assets.deleted) != 0 {
		t.Errorf("asset store touched: uploads=%d deleted=%v", assets.uploads, assets.deleted)
	}
}

func TestProblemUpdate_Errors(t *testing.T) {
	svc, _, _ := newTestProblemService()
	p, _ := svc.Create(context.Background(), alice, pothole, nil)

	tests := []struct {
		name    string
		id      string
		patch   model.ProblemPatch
		wantErr error
	}{
		{"missing problem", "problem-404", model.ProblemPatch{}, apperror.ErrNotFound},
		{"unknown status", p.ID, model.ProblemPatch{Status: strPtr("closed")}, apperror.ErrValidation},
		{"empty id", "", model.ProblemPatch{}, apperror.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), alice, tt.id, tt.patch, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Update() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestProblemDelete_RemovesImageOnce(t *testing.T) {
	svc, store, assets := newTestProblemService()
	p, _ := svc.Create(context.Background(), alice, pothole, []byte("img"))

	if err := svc.Delete(context.Background(), alice, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, ok := store.problems[p.ID]; ok {
		t.Error("problem still stored")
	}
	if !reflect.DeepEqual(assets.deleted, []string{p.Image}) {
		t.Errorf("deleted = %v, want exactly [%s]", assets.deleted, p.Image)
	}
}

func TestProblemDelete_AssetFailureIsSwallowed(t *testing.T) {
	svc, store, assets := newTestProblemService()
	p, _ := svc.Create(context.Background(), alice, pothole, []byte("img"))
	assets.deleteErr = errors.New("storage offline")

	if err := svc.Delete(context.Background(), alice, p.ID); err != nil {
		t.Fatalf("Delete() error = %v, want nil", err)
	}
	if _, ok := store.problems[p.ID]; ok {
		t.Error("problem still stored")
	}
}

func TestProblemDelete_NoImageSkipsAssetStore(t *testing.T) {
	svc, _, assets := newTestProblemService()
	p, _ := svc.Create(context.Background(), alice, pothole, nil)

	if err := svc.Delete(context.Background(), alice, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(assets.deleted) != 0 {
		t.Errorf("deleted = %v, want nothing", assets.deleted)
	}
}

func TestProblemDelete_Authorization(t *testing.T) {
	svc, store, assets := newTestProblemService()
	p, _ := svc.Create(context.Background(), alice, pothole, []byte("img"))

	if err := svc.Delete(context.Background(), bob, p.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Delete() by non-owner error = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(context.Background(), alice, "problem-404"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() missing error = %v, want ErrNotFound", err)
	}
	if _, ok := store.problems[p.ID]; !ok {
		t.Error("problem deleted by non-owner")
	}
	if len(assets.deleted) != 0 {
		t.Errorf("deleted = %v, want nothing", assets.deleted)
	}
}

func TestProblemList_NewestFirst(t *testing.T) {
	svc, _, _ := newTestProblemService()
	first, _ := svc.Create(context.Background(), alice, pothole, nil)
	second, _ := svc.Create(context.Background(), bob, pothole, nil)

	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("List() = %+v, want [%s %s]", got, second.ID, first.ID)
	}
}
